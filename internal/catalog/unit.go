package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unit is a resolved sellable unit: a product, or a product variant with its
// overrides applied.
type Unit struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Name      string
	SKU       string
	Slug      string
	Price     decimal.Decimal
	Inventory int
	IsActive  bool
}

// DisplayName composes the line name shown for a variant.
func DisplayName(productName, variantName string) string {
	if variantName == "" {
		return productName
	}
	return productName + " - " + variantName
}
