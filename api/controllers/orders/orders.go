package orders

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/cartflow-backend/api/middleware"
	"github.com/angelmondragon/cartflow-backend/api/responses"
	"github.com/angelmondragon/cartflow-backend/api/validators"
	ordersvc "github.com/angelmondragon/cartflow-backend/internal/orders"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
	"github.com/angelmondragon/cartflow-backend/pkg/pagination"
)

// Service is the subset of orders.Service used by the customer routes.
type Service interface {
	CreateFromCart(ctx context.Context, input ordersvc.CreateOrderInput) (*models.Order, error)
	Cancel(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params ordersvc.ListParams) (*ordersvc.OrderList, error)
}

// AdminService covers the admin routes.
type AdminService interface {
	UpdateStatus(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID, rawStatus string) (*models.Order, error)
	ListAll(ctx context.Context, params ordersvc.ListParams) (*ordersvc.OrderList, error)
}

type createOrderRequest struct {
	ShippingAddressID uuid.UUID  `json:"shippingAddressId" validate:"required"`
	BillingAddressID  *uuid.UUID `json:"billingAddressId"`
	PaymentMethod     string     `json:"paymentMethod" validate:"required,notblank,min=2,max=50"`
	Notes             *string    `json:"notes" validate:"omitempty,max=500"`
}

// CreateOrder turns the caller's cart into an order.
func CreateOrder(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := resolveActor(w, r, svc != nil, logg)
		if !ok {
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateFromCart(r.Context(), ordersvc.CreateOrderInput{
			UserID:            actor.UserID,
			ShippingAddressID: payload.ShippingAddressID,
			BillingAddressID:  payload.BillingAddressID,
			PaymentMethod:     validators.SanitizeString(payload.PaymentMethod, 50),
			Notes:             payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ordersvc.NewOrderDTO(order))
	}
}

// List returns the caller's orders, newest first.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := resolveActor(w, r, svc != nil, logg)
		if !ok {
			return
		}
		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForUser(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := resolveActor(w, r, svc != nil, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ordersvc.NewOrderDTO(order))
	}
}

// CancelOrder cancels a pending or processing order and releases its stock.
func CancelOrder(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := resolveActor(w, r, svc != nil, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ordersvc.NewOrderDTO(order))
	}
}

func resolveActor(w http.ResponseWriter, r *http.Request, available bool, logg *logger.Logger) (ordersvc.Actor, bool) {
	if !available {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
		return ordersvc.Actor{}, false
	}
	userID, role, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return ordersvc.Actor{}, false
	}
	return ordersvc.Actor{UserID: userID, Role: role}, true
}

func parseListParams(r *http.Request) (ordersvc.ListParams, error) {
	page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, 1<<20)
	if err != nil {
		return ordersvc.ListParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return ordersvc.ListParams{}, err
	}
	status, err := validators.ParseOrderStatusFilter(r, "status")
	if err != nil {
		return ordersvc.ListParams{}, err
	}
	return ordersvc.ListParams{Page: page, Limit: limit, Status: status}, nil
}
