package cart

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/catalog"
	"github.com/angelmondragon/cartflow-backend/internal/inventory"
	"github.com/angelmondragon/cartflow-backend/internal/repo"
	"github.com/angelmondragon/cartflow-backend/pkg/db"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
)

// Service manages a user's cart and prices it on every read.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddLine(ctx context.Context, userID uuid.UUID, input AddLineInput) (*Snapshot, error)
	UpdateLine(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*Snapshot, error)
	RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*Snapshot, error)
	Clear(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	Snapshot(ctx context.Context, cartID uuid.UUID) (*Snapshot, error)
	SnapshotForUser(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	SnapshotForUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*Snapshot, error)
	ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

// AddLineInput identifies the unit and quantity to add.
type AddLineInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

const cartUserConstraint = "idx_carts_user_id"

type service struct {
	repo  Repository
	units unitResolver
	tx    txRunner
	logg  *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, units unitResolver, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, units: units, tx: tx, logg: logg}, nil
}

// GetOrCreate returns the user's cart, inserting it on first use. Two racing
// first calls both end up with the same row.
func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !repo.IsNotFound(err) {
		return nil, repo.MapError(err, "")
	}

	owner := userID
	cart, err = s.repo.Create(ctx, &models.Cart{UserID: &owner})
	if err == nil {
		return cart, nil
	}
	if !db.IsUniqueViolation(err, cartUserConstraint) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	cart, err = s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, repo.MapError(err, "cart not found")
	}
	return cart, nil
}

func (s *service) AddLine(ctx context.Context, userID uuid.UUID, input AddLineInput) (*Snapshot, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.repo.WithTx(tx)
		unit, err := s.units.WithTx(tx).GetUnit(ctx, input.ProductID, input.VariantID)
		if err != nil {
			return repo.MapError(err, "product not found")
		}
		if !unit.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		existing, err := carts.FindItemByUnit(ctx, cart.ID, input.ProductID, input.VariantID)
		if err != nil && !repo.IsNotFound(err) {
			return repo.MapError(err, "")
		}

		held := 0
		if existing != nil {
			held = existing.Quantity
		}
		// Compared against the remaining headroom so a huge quantity cannot wrap.
		if input.Quantity > unit.Inventory-held {
			return shortage(unit, satAdd(held, input.Quantity))
		}
		want := held + input.Quantity

		if existing != nil {
			return repo.MapError(carts.UpdateItemQuantity(ctx, existing.ID, want), "")
		}
		_, err = carts.CreateItem(ctx, &models.CartItem{
			CartID:    cart.ID,
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
		})
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart line was added concurrently")
		}
		return repo.MapError(err, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, cart.ID)
}

func (s *service) UpdateLine(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*Snapshot, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.repo.WithTx(tx)
		item, err := carts.FindItem(ctx, cart.ID, lineID)
		if err != nil {
			return repo.MapError(err, "cart item not found")
		}
		unit, err := s.units.WithTx(tx).GetUnit(ctx, item.ProductID, item.VariantID)
		if err != nil {
			return repo.MapError(err, "product not found")
		}
		if quantity > unit.Inventory {
			return shortage(unit, quantity)
		}
		return repo.MapError(carts.UpdateItemQuantity(ctx, item.ID, quantity), "")
	})
	if err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, cart.ID)
}

func (s *service) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*Snapshot, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, lineID); err != nil {
		return nil, repo.MapError(err, "cart item not found")
	}
	return s.Snapshot(ctx, cart.ID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return nil, repo.MapError(err, "")
	}
	return s.Snapshot(ctx, cart.ID)
}

func (s *service) Snapshot(ctx context.Context, cartID uuid.UUID) (*Snapshot, error) {
	return s.snapshot(ctx, s.repo, s.units.WithTx(nil), cartID)
}

func (s *service) SnapshotForUser(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, cart.ID)
}

// SnapshotForUserTx prices the cart inside tx. A user without a cart gets an
// empty snapshot; no row is created.
func (s *service) SnapshotForUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*Snapshot, error) {
	carts := s.repo.WithTx(tx)
	cart, err := carts.FindByUserID(ctx, userID)
	if repo.IsNotFound(err) {
		return &Snapshot{Items: []SnapshotLine{}, Subtotal: decimal.Zero}, nil
	}
	if err != nil {
		return nil, repo.MapError(err, "")
	}
	return s.snapshot(ctx, carts, s.units.WithTx(tx), cart.ID)
}

func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	return repo.MapError(s.repo.WithTx(tx).DeleteItems(ctx, cartID), "")
}

// snapshot re-resolves every line against the catalog. Lines whose product or
// variant has since been deleted are left out.
func (s *service) snapshot(ctx context.Context, carts Repository, units catalog.Repository, cartID uuid.UUID) (*Snapshot, error) {
	items, err := carts.ListItems(ctx, cartID)
	if err != nil {
		return nil, repo.MapError(err, "")
	}

	snap := &Snapshot{CartID: cartID, Items: make([]SnapshotLine, 0, len(items)), Subtotal: decimal.Zero}
	for _, item := range items {
		unit, err := units.GetUnit(ctx, item.ProductID, item.VariantID)
		if repo.IsNotFound(err) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"cart_id":      cartID.String(),
				"cart_item_id": item.ID.String(),
			}), "cart.line_unit_missing")
			continue
		}
		if err != nil {
			return nil, repo.MapError(err, "")
		}
		snap.add(SnapshotLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      unit.Name,
			SKU:       unit.SKU,
			Slug:      unit.Slug,
			Price:     unit.Price,
			Quantity:  item.Quantity,
			Subtotal:  unit.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return snap, nil
}

// satAdd adds two non-negative quantities, clamping at math.MaxInt.
func satAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func shortage(unit *catalog.Unit, requested int) error {
	return inventory.InsufficientError(inventory.Unit{ProductID: unit.ProductID, VariantID: unit.VariantID}, requested, unit.Inventory)
}
