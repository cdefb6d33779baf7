package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/inventory"
	"github.com/angelmondragon/cartflow-backend/internal/repo"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
	"github.com/angelmondragon/cartflow-backend/pkg/outbox"
	"github.com/angelmondragon/cartflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/cartflow-backend/pkg/pagination"
)

type transitionDetails struct {
	From enums.OrderStatus `json:"from"`
	To   enums.OrderStatus `json:"to"`
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot move from "+string(from)+" to "+string(to)).
		WithDetails(transitionDetails{From: from, To: to})
}

// Cancel releases the reserved stock and marks the order cancelled. Orders
// belonging to someone else are reported as missing unless the actor is an admin.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	released := 0
	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		order, err := ordersRepo.FindDetail(ctx, orderID)
		if err != nil {
			return repo.MapError(err, "order not found")
		}
		if !actor.IsAdmin() && order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		from = order.Status
		released, err = s.cancelTx(ctx, tx, ordersRepo, order, actor)
		if err != nil {
			return err
		}
		result, err = ordersRepo.FindDetail(ctx, orderID)
		return repo.MapError(err, "order not found")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(from), string(enums.OrderStatusCancelled))
	s.metrics.AddReleased(released)
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"previous_status": from,
		"released_units":  released,
	}), "order.cancelled")
	return result, nil
}

// cancelTx performs the guarded status flip, releases every item and queues
// order_canceled. It returns the number of units put back.
func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, ordersRepo Repository, order *models.Order, actor Actor) (int, error) {
	if !order.Status.IsCancellable() {
		return 0, invalidTransition(order.Status, enums.OrderStatusCancelled)
	}
	now := s.now()
	moved, err := ordersRepo.UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusCancelled, &now)
	if err != nil {
		return 0, repo.MapError(err, "")
	}
	if !moved {
		// Someone else moved the order between the read and the write.
		return 0, invalidTransition(order.Status, enums.OrderStatusCancelled)
	}

	released := 0
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		unit := inventory.Unit{ProductID: item.ProductID, VariantID: item.VariantID}
		if err := s.inventory.Release(ctx, tx, unit, item.Quantity); err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return 0, err
			}
			// The unit was removed from the catalog after checkout. There is
			// no stock row to return units to.
			s.logg.Warn(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
				"product_id": item.ProductID,
				"variant_id": item.VariantID,
				"quantity":   item.Quantity,
			}), "order.cancel_unit_missing")
			continue
		}
		released += item.Quantity
		lines = append(lines, orderLine(item))
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		OccurredAt:    now,
		Data: payloads.OrderCanceledEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			UserID:         order.UserID,
			PreviousStatus: order.Status,
			CanceledAt:     now,
			ReleasedItems:  lines,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order_canceled event")
	}
	return released, nil
}

// UpdateStatus is the admin status move. A cancelled target takes the cancel
// path so stock is always released. Moving to the current status is a no-op.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, rawStatus string) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	target, err := enums.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidStatus, err, "unknown order status").
			WithDetails(map[string]any{
				"status":  rawStatus,
				"allowed": enums.OrderStatuses(),
			})
	}
	if target == enums.OrderStatusCancelled {
		return s.Cancel(ctx, actor, orderID)
	}

	var (
		result  *models.Order
		from    enums.OrderStatus
		changed bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		order, err := ordersRepo.FindByID(ctx, orderID)
		if err != nil {
			return repo.MapError(err, "order not found")
		}
		from = order.Status
		if from == target {
			result, err = ordersRepo.FindDetail(ctx, orderID)
			return repo.MapError(err, "order not found")
		}
		if from.IsTerminal() {
			return invalidTransition(from, target)
		}
		if s.policy.StrictTransitions {
			if next, ok := from.Next(); !ok || next != target {
				return invalidTransition(from, target)
			}
		}

		moved, err := ordersRepo.UpdateStatus(ctx, order.ID, from, target, nil)
		if err != nil {
			return repo.MapError(err, "")
		}
		if !moved {
			return invalidTransition(from, target)
		}

		now := s.now()
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				From:        from,
				To:          target,
				ChangedAt:   now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order_status_changed event")
		}
		changed = true

		result, err = ordersRepo.FindDetail(ctx, orderID)
		return repo.MapError(err, "order not found")
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.IncTransition(string(from), string(target))
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
			"from": from,
			"to":   target,
		}), "order.status_changed")
	}
	return result, nil
}

// Get returns one order with items and addresses.
func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindDetail(ctx, orderID)
	if err != nil {
		return nil, repo.MapError(err, "order not found")
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params ListParams) (*OrderList, error) {
	return s.list(ctx, &userID, params)
}

func (s *service) ListAll(ctx context.Context, params ListParams) (*OrderList, error) {
	return s.list(ctx, nil, params)
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, params ListParams) (*OrderList, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStatus, "unknown order status")
	}
	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	rows, total, err := s.orders.List(ctx, ListFilter{UserID: userID, Status: params.Status, Page: page})
	if err != nil {
		return nil, repo.MapError(err, "")
	}
	out := &OrderList{
		Orders:     make([]OrderDTO, 0, len(rows)),
		Pagination: pagination.NewMeta(page, total),
	}
	for i := range rows {
		out.Orders = append(out.Orders, NewOrderDTO(&rows[i]))
	}
	return out, nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}
