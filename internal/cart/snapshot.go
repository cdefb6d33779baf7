package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is the priced view of a cart. Nothing in it is persisted.
type Snapshot struct {
	CartID        uuid.UUID       `json:"cart_id"`
	Items         []SnapshotLine  `json:"items"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// SnapshotLine is a cart line joined with its current catalog data.
type SnapshotLine struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// IsEmpty reports whether the snapshot has no lines.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}

func (s *Snapshot) add(line SnapshotLine) {
	s.Items = append(s.Items, line)
	s.ItemCount++
	s.TotalQuantity += line.Quantity
	s.Subtotal = s.Subtotal.Add(line.Subtotal)
}
