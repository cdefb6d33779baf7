// Package inventory owns every mutation of product and variant stock.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/repo"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
)

// Unit addresses the row whose inventory column is authoritative: the variant
// when VariantID is set, otherwise the product.
type Unit struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

func (u Unit) table() string {
	if u.VariantID != nil {
		return "product_variants"
	}
	return "products"
}

func (u Unit) id() uuid.UUID {
	if u.VariantID != nil {
		return *u.VariantID
	}
	return u.ProductID
}

// ShortageDetails is attached to INSUFFICIENT_INVENTORY errors.
type ShortageDetails struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Requested int        `json:"requested"`
	Available int        `json:"available"`
}

// InsufficientError builds the typed shortage error for unit.
func InsufficientError(unit Unit, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory").
		WithDetails(ShortageDetails{
			ProductID: unit.ProductID,
			VariantID: unit.VariantID,
			Requested: requested,
			Available: available,
		})
}

// Ledger performs conditional stock updates. It holds no state; callers pass
// the transaction the mutation must join.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve decrements stock by qty only when enough is available. The guard
// lives in the UPDATE itself so concurrent reservations cannot oversell.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, unit Unit, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}
	res := tx.WithContext(ctx).
		Table(unit.table()).
		Where("id = ? AND inventory >= ?", unit.id(), qty).
		UpdateColumn("inventory", gorm.Expr("inventory - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		available, err := l.Available(ctx, tx, unit)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		return InsufficientError(unit, qty, available)
	}
	return nil
}

// Release returns qty units to stock. There is no upper bound check.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, unit Unit, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}
	res := tx.WithContext(ctx).
		Table(unit.table()).
		Where("id = ?", unit.id()).
		UpdateColumn("inventory", gorm.Expr("inventory + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %s not found", unit.table(), unit.id()))
	}
	return nil
}

// Available reads the current stock for unit.
func (l *Ledger) Available(ctx context.Context, tx *gorm.DB, unit Unit) (int, error) {
	var model any = &models.Product{}
	if unit.VariantID != nil {
		model = &models.ProductVariant{}
	}
	var stock []int
	err := tx.WithContext(ctx).Model(model).
		Where("id = ?", unit.id()).
		Limit(1).
		Pluck("inventory", &stock).Error
	if err != nil {
		return 0, repo.MapError(err, "sellable unit not found")
	}
	if len(stock) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "sellable unit not found")
	}
	return stock[0], nil
}
