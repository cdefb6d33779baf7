package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/address"
	"github.com/angelmondragon/cartflow-backend/internal/cart"
	"github.com/angelmondragon/cartflow-backend/internal/inventory"
	"github.com/angelmondragon/cartflow-backend/internal/repo"
	"github.com/angelmondragon/cartflow-backend/pkg/db"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
	"github.com/angelmondragon/cartflow-backend/pkg/outbox"
	"github.com/angelmondragon/cartflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const orderNumberConstraint = "idx_orders_order_number"

// Totals are the monetary amounts fixed on an order at checkout.
type Totals struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// ComputeTotals applies the tax rate rounded half-up to cents plus the flat
// shipping charge.
func ComputeTotals(subtotal decimal.Decimal, policy Policy) Totals {
	tax := subtotal.Mul(policy.TaxRate).Round(2)
	shipping := policy.ShippingFlat.Round(2)
	return Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Total:        subtotal.Add(tax).Add(shipping),
	}
}

// CreateFromCart converts the user's cart into a pending order in a single
// transaction: stock is reserved, the cart is emptied and an order_created
// event is queued. Any failure leaves every table untouched.
func (s *service) CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	started := time.Now()
	order, err := s.createFromCart(ctx, input.normalized())

	code := ""
	if err != nil {
		code = string(pkgerrors.As(err).Code())
	}
	s.metrics.ObserveCheckout(code, time.Since(started))

	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"user_id": input.UserID.String(),
			"code":    code,
		}), "checkout.failed")
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"total":        order.Total.StringFixed(2),
		"items":        len(order.Items),
	}), "checkout.completed")
	return order, nil
}

func (s *service) createFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ShippingAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	if input.PaymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	var created *models.Order
	reserved := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		snap, err := s.carts.SnapshotForUserTx(ctx, tx, input.UserID)
		if err != nil {
			return err
		}
		if snap.IsEmpty() {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		addrs := s.addresses.WithTx(tx)
		if err := s.requireOwnedAddress(ctx, addrs, input.ShippingAddressID, input.UserID); err != nil {
			return err
		}
		if input.BillingAddressID != nil {
			if err := s.requireOwnedAddress(ctx, addrs, *input.BillingAddressID, input.UserID); err != nil {
				return err
			}
		}

		// Fail fast before any write; Reserve below remains the real guard.
		for _, line := range snap.Items {
			unit := unitOf(line)
			available, err := s.inventory.Available(ctx, tx, unit)
			if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return err
			}
			if available < line.Quantity {
				return inventory.InsufficientError(unit, line.Quantity, available)
			}
		}

		number, err := s.uniqueOrderNumber(ctx, ordersRepo)
		if err != nil {
			return err
		}

		totals := ComputeTotals(snap.Subtotal, s.policy)
		order := &models.Order{
			UserID:            input.UserID,
			OrderNumber:       number,
			Status:            enums.OrderStatusPending,
			Subtotal:          totals.Subtotal,
			Tax:               totals.Tax,
			ShippingCost:      totals.ShippingCost,
			Total:             totals.Total,
			ShippingAddressID: input.ShippingAddressID,
			BillingAddressID:  input.BillingAddressID,
			PaymentMethod:     input.PaymentMethod,
			PaymentStatus:     enums.PaymentStatusPending,
			Notes:             input.Notes,
		}
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, orderNumberConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision, retry checkout")
			}
			return repo.MapError(err, "")
		}

		lines := make([]payloads.OrderLine, 0, len(snap.Items))
		for _, line := range snap.Items {
			item := &models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Name:      line.Name,
				SKU:       line.SKU,
				Price:     line.Price,
				Quantity:  line.Quantity,
				Subtotal:  line.Subtotal,
			}
			if err := ordersRepo.CreateItem(ctx, item); err != nil {
				return repo.MapError(err, "")
			}
			if err := s.inventory.Reserve(ctx, tx, unitOf(line), line.Quantity); err != nil {
				return err
			}
			reserved += line.Quantity
			lines = append(lines, orderLine(item))
		}

		if err := s.carts.ClearTx(ctx, tx, snap.CartID); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			OccurredAt:    s.now(),
			Data: payloads.OrderCreatedEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				UserID:       order.UserID,
				Status:       order.Status,
				Subtotal:     order.Subtotal,
				Tax:          order.Tax,
				ShippingCost: order.ShippingCost,
				Total:        order.Total,
				Items:        lines,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order_created event")
		}

		created, err = ordersRepo.FindDetail(ctx, order.ID)
		return repo.MapError(err, "order not found")
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddReserved(reserved)
	return created, nil
}

func (s *service) requireOwnedAddress(ctx context.Context, addrs address.Repository, addressID, userID uuid.UUID) error {
	_, err := addrs.FindOwned(ctx, addressID, userID)
	if repo.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeAddressNotFound, "address not found")
	}
	return repo.MapError(err, "")
}

// uniqueOrderNumber retries generation while the candidate is already taken.
func (s *service) uniqueOrderNumber(ctx context.Context, ordersRepo Repository) (string, error) {
	for attempt := 0; attempt < s.policy.OrderNumberAttempts; attempt++ {
		candidate, err := s.numbers(s.now())
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		exists, err := ordersRepo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", repo.MapError(err, "")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func unitOf(line cart.SnapshotLine) inventory.Unit {
	return inventory.Unit{ProductID: line.ProductID, VariantID: line.VariantID}
}

func orderLine(item *models.OrderItem) payloads.OrderLine {
	return payloads.OrderLine{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		SKU:       item.SKU,
		Quantity:  item.Quantity,
		Price:     item.Price,
	}
}
