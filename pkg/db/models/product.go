package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a vendor listing. Its inventory applies when no variant is chosen.
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	VendorID     uuid.UUID        `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name         string           `gorm:"column:name;not null"`
	Slug         string           `gorm:"column:slug;not null;uniqueIndex"`
	Description  *string          `gorm:"column:description"`
	Price        decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	ComparePrice *decimal.Decimal `gorm:"column:compare_price;type:numeric(12,2)"`
	SKU          string           `gorm:"column:sku;not null;uniqueIndex"`
	Inventory    int              `gorm:"column:inventory;not null;default:0;check:chk_products_inventory,inventory >= 0"`
	IsActive     bool             `gorm:"column:is_active;not null"`
	Variants     []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
