package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow-backend/api/middleware"
	ordersvc "github.com/angelmondragon/cartflow-backend/internal/orders"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
)

type stubOrderService struct {
	createFn       func(ctx context.Context, input ordersvc.CreateOrderInput) (*models.Order, error)
	cancelFn       func(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID) (*models.Order, error)
	getFn          func(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID) (*models.Order, error)
	listFn         func(ctx context.Context, userID uuid.UUID, params ordersvc.ListParams) (*ordersvc.OrderList, error)
	updateStatusFn func(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID, raw string) (*models.Order, error)
	listAllFn      func(ctx context.Context, params ordersvc.ListParams) (*ordersvc.OrderList, error)
}

func (s stubOrderService) CreateFromCart(ctx context.Context, input ordersvc.CreateOrderInput) (*models.Order, error) {
	return s.createFn(ctx, input)
}

func (s stubOrderService) Cancel(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.cancelFn(ctx, actor, orderID)
}

func (s stubOrderService) Get(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.getFn(ctx, actor, orderID)
}

func (s stubOrderService) ListForUser(ctx context.Context, userID uuid.UUID, params ordersvc.ListParams) (*ordersvc.OrderList, error) {
	return s.listFn(ctx, userID, params)
}

func (s stubOrderService) UpdateStatus(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID, raw string) (*models.Order, error) {
	return s.updateStatusFn(ctx, actor, orderID, raw)
}

func (s stubOrderService) ListAll(ctx context.Context, params ordersvc.ListParams) (*ordersvc.OrderList, error) {
	return s.listAllFn(ctx, params)
}

func withCaller(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func sampleOrder(userID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-20260105-ABC123",
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Subtotal:      decimal.RequireFromString("20.00"),
		Tax:           decimal.RequireFromString("2.00"),
		ShippingCost:  decimal.Zero,
		Total:         decimal.RequireFromString("22.00"),
		PaymentMethod: "card",
	}
}

func decodeOrder(t *testing.T, resp *httptest.ResponseRecorder) ordersvc.OrderDTO {
	t.Helper()
	var envelope struct {
		Data ordersvc.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	var captured ordersvc.CreateOrderInput
	svc := stubOrderService{
		createFn: func(ctx context.Context, input ordersvc.CreateOrderInput) (*models.Order, error) {
			captured = input
			return sampleOrder(input.UserID), nil
		},
	}

	body := `{"shippingAddressId":"` + addressID.String() + `","paymentMethod":"  card ","notes":"leave at door"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), userID, enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.UserID != userID || captured.ShippingAddressID != addressID || captured.PaymentMethod != "card" {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.BillingAddressID != nil {
		t.Fatalf("billing address should be optional")
	}
	order := decodeOrder(t, resp)
	if !order.Total.Equal(decimal.RequireFromString("22")) || order.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	cases := map[string]string{
		"missing address":      `{"paymentMethod":"card"}`,
		"short payment method": `{"shippingAddressId":"` + uuid.NewString() + `","paymentMethod":"c"}`,
		"long notes":           `{"shippingAddressId":"` + uuid.NewString() + `","paymentMethod":"card","notes":"` + strings.Repeat("n", 501) + `"}`,
		"bad uuid":             `{"shippingAddressId":"nope","paymentMethod":"card"}`,
	}
	svc := stubOrderService{
		createFn: func(context.Context, ordersvc.CreateOrderInput) (*models.Order, error) {
			t.Fatal("service must not be called for invalid bodies")
			return nil, nil
		},
	}
	for name, body := range cases {
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
		resp := httptest.NewRecorder()
		CreateOrder(svc, nil).ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
	}
}

func TestCreateOrderMapsDomainErrors(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeEmptyCart, http.StatusBadRequest},
		{pkgerrors.CodeAddressNotFound, http.StatusNotFound},
		{pkgerrors.CodeInsufficientInventory, http.StatusConflict},
	}
	for _, tc := range cases {
		svc := stubOrderService{
			createFn: func(context.Context, ordersvc.CreateOrderInput) (*models.Order, error) {
				return nil, pkgerrors.New(tc.code, "boom")
			},
		}
		body := `{"shippingAddressId":"` + uuid.NewString() + `","paymentMethod":"card"}`
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
		resp := httptest.NewRecorder()
		CreateOrder(svc, nil).ServeHTTP(resp, req)
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.code, tc.status, resp.Code)
		}
	}
}

func TestListParsesQuery(t *testing.T) {
	userID := uuid.New()
	svc := stubOrderService{
		listFn: func(ctx context.Context, got uuid.UUID, params ordersvc.ListParams) (*ordersvc.OrderList, error) {
			if got != userID {
				t.Fatalf("unexpected user %s", got)
			}
			if params.Page != 2 || params.Limit != 5 {
				t.Fatalf("unexpected params %+v", params)
			}
			if params.Status == nil || *params.Status != enums.OrderStatusShipped {
				t.Fatalf("expected shipped filter, got %v", params.Status)
			}
			return &ordersvc.OrderList{Orders: []ordersvc.OrderDTO{}}, nil
		},
	}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=2&limit=5&status=shipped", nil), userID, enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=lost", nil), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	List(stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInvalidStatus) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestDetailForbidden(t *testing.T) {
	svc := stubOrderService{
		getFn: func(context.Context, ordersvc.Actor, uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		},
	}
	r := chi.NewRouter()
	r.Get("/api/v1/orders/{orderId}", Detail(svc, nil))

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCancelOrderPassesActor(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := stubOrderService{
		cancelFn: func(ctx context.Context, actor ordersvc.Actor, got uuid.UUID) (*models.Order, error) {
			if actor.UserID != userID || actor.Role != enums.UserRoleCustomer || got != orderID {
				t.Fatalf("unexpected cancel args %+v %s", actor, got)
			}
			order := sampleOrder(userID)
			order.ID = orderID
			order.Status = enums.OrderStatusCancelled
			return order, nil
		},
	}
	r := chi.NewRouter()
	r.Put("/api/v1/orders/{orderId}/cancel", CancelOrder(svc, nil))

	req := withCaller(httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID.String()+"/cancel", nil), userID, enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if decodeOrder(t, resp).Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled order")
	}
}

func TestCancelOrderInvalidTransition(t *testing.T) {
	svc := stubOrderService{
		cancelFn: func(context.Context, ordersvc.Actor, uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot be cancelled")
		},
	}
	r := chi.NewRouter()
	r.Put("/api/v1/orders/{orderId}/cancel", CancelOrder(svc, nil))

	req := withCaller(httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+uuid.NewString()+"/cancel", nil), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAdminUpdateStatus(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()
	svc := stubOrderService{
		updateStatusFn: func(ctx context.Context, actor ordersvc.Actor, got uuid.UUID, raw string) (*models.Order, error) {
			if !actor.IsAdmin() || got != orderID || raw != "shipped" {
				t.Fatalf("unexpected args %+v %s %s", actor, got, raw)
			}
			order := sampleOrder(uuid.New())
			order.Status = enums.OrderStatusShipped
			return order, nil
		},
	}
	r := chi.NewRouter()
	r.Put("/api/admin/v1/orders/{orderId}/status", AdminUpdateStatus(svc, nil))

	req := withCaller(httptest.NewRequest(http.MethodPut, "/api/admin/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"shipped"}`)), adminID, enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	req = withCaller(httptest.NewRequest(http.MethodPut, "/api/admin/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{}`)), adminID, enums.UserRoleAdmin)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing status got %d", resp.Code)
	}
}

func TestAdminList(t *testing.T) {
	svc := stubOrderService{
		listAllFn: func(ctx context.Context, params ordersvc.ListParams) (*ordersvc.OrderList, error) {
			if params.Status != nil {
				t.Fatalf("expected no status filter")
			}
			return &ordersvc.OrderList{Orders: []ordersvc.OrderDTO{}}, nil
		},
	}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil), uuid.New(), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	AdminList(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
