package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductVariant is a sellable option of a product with its own stock.
// Price overrides the parent product's price when set.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string           `gorm:"column:name;not null"`
	SKU       string           `gorm:"column:sku;not null;uniqueIndex"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Inventory int              `gorm:"column:inventory;not null;default:0;check:chk_product_variants_inventory,inventory >= 0"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
