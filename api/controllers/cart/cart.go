package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/cartflow-backend/api/middleware"
	"github.com/angelmondragon/cartflow-backend/api/responses"
	"github.com/angelmondragon/cartflow-backend/api/validators"
	cartsvc "github.com/angelmondragon/cartflow-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
)

// Service is the subset of cart.Service the HTTP layer uses.
type Service interface {
	SnapshotForUser(ctx context.Context, userID uuid.UUID) (*cartsvc.Snapshot, error)
	AddLine(ctx context.Context, userID uuid.UUID, input cartsvc.AddLineInput) (*cartsvc.Snapshot, error)
	UpdateLine(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*cartsvc.Snapshot, error)
	RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*cartsvc.Snapshot, error)
	Clear(ctx context.Context, userID uuid.UUID) (*cartsvc.Snapshot, error)
}

type addItemRequest struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId"`
	Quantity  *int       `json:"quantity" validate:"omitempty,min=1"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// CartFetch returns the caller's priced cart.
func CartFetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, svc, logg)
		if !ok {
			return
		}
		snapshot, err := svc.SnapshotForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CartAddItem adds a product or variant line, merging with an existing line for the same unit.
func CartAddItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, svc, logg)
		if !ok {
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity := 1
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}

		snapshot, err := svc.AddLine(r.Context(), userID, cartsvc.AddLineInput{
			ProductID: payload.ProductID,
			VariantID: payload.VariantID,
			Quantity:  quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}

func CartUpdateItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.UpdateLine(r.Context(), userID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

func CartRemoveItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.RemoveLine(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

func CartClear(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, svc, logg)
		if !ok {
			return
		}
		snapshot, err := svc.Clear(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

func callerID(w http.ResponseWriter, r *http.Request, svc Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return uuid.Nil, false
	}
	userID, _, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return userID, true
}
