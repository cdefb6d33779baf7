package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/pkg/enums"
)

// Order is the immutable record produced by checkout. Orders are never deleted.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax               decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	ShippingCost      decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Total             decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingAddressID uuid.UUID           `gorm:"column:shipping_address_id;type:uuid;not null"`
	BillingAddressID  *uuid.UUID          `gorm:"column:billing_address_id;type:uuid"`
	PaymentMethod     string              `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Notes             *string             `gorm:"column:notes"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress   *Address            `gorm:"foreignKey:ShippingAddressID;references:ID"`
	BillingAddress    *Address            `gorm:"foreignKey:BillingAddressID;references:ID"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
