package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/cart"
	"github.com/angelmondragon/cartflow-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/cartflow-backend/pkg/auth"
	"github.com/angelmondragon/cartflow-backend/pkg/config"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	"github.com/angelmondragon/cartflow-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/cartflow-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryRedis struct {
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", pkgredis.ErrNil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

func (m *memoryRedis) Ping(context.Context) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) GetOrCreate(context.Context, uuid.UUID) (*models.Cart, error) {
	return &models.Cart{}, nil
}

func (stubCartService) AddLine(context.Context, uuid.UUID, cart.AddLineInput) (*cart.Snapshot, error) {
	return &cart.Snapshot{}, nil
}

func (stubCartService) UpdateLine(context.Context, uuid.UUID, uuid.UUID, int) (*cart.Snapshot, error) {
	return &cart.Snapshot{}, nil
}

func (stubCartService) RemoveLine(context.Context, uuid.UUID, uuid.UUID) (*cart.Snapshot, error) {
	return &cart.Snapshot{}, nil
}

func (stubCartService) Clear(context.Context, uuid.UUID) (*cart.Snapshot, error) {
	return &cart.Snapshot{}, nil
}

func (stubCartService) Snapshot(context.Context, uuid.UUID) (*cart.Snapshot, error) {
	return &cart.Snapshot{}, nil
}

func (stubCartService) SnapshotForUser(context.Context, uuid.UUID) (*cart.Snapshot, error) {
	return &cart.Snapshot{}, nil
}

func (stubCartService) SnapshotForUserTx(context.Context, *gorm.DB, uuid.UUID) (*cart.Snapshot, error) {
	return &cart.Snapshot{}, nil
}

func (stubCartService) ClearTx(context.Context, *gorm.DB, uuid.UUID) error {
	return nil
}

type stubOrdersService struct {
	creates int
}

func (s *stubOrdersService) CreateFromCart(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	s.creates++
	return &models.Order{ID: uuid.New(), UserID: input.UserID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrdersService) Cancel(context.Context, orders.Actor, uuid.UUID) (*models.Order, error) {
	return &models.Order{Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrdersService) UpdateStatus(context.Context, orders.Actor, uuid.UUID, string) (*models.Order, error) {
	return &models.Order{Status: enums.OrderStatusShipped}, nil
}

func (s *stubOrdersService) Get(context.Context, orders.Actor, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (s *stubOrdersService) ListForUser(context.Context, uuid.UUID, orders.ListParams) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersService) ListAll(context.Context, orders.ListParams) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:               config.AppConfig{Env: "test"},
		JWT:               config.JWTConfig{Secret: "router-secret", Issuer: "cartflow-test", ExpirationMinutes: 30},
		CheckoutRateLimit: config.CheckoutRateLimitConfig{Limit: 2, Window: time.Minute},
		CORS:              config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

type routerFixture struct {
	handler http.Handler
	orders  *stubOrdersService
	cfg     *config.Config
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	ordersSvc := &stubOrdersService{}
	handler := NewRouter(
		cfg,
		nil,
		stubPinger{},
		newMemoryRedis(),
		stubCartService{},
		ordersSvc,
		metrics.NewHTTPMetrics(reg),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	return routerFixture{handler: handler, orders: ordersSvc, cfg: cfg}
}

func (f routerFixture) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (f routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutes(t *testing.T) {
	f := newRouterFixture(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		if resp := f.do(httptest.NewRequest(http.MethodGet, path, nil)); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestMetricsRouteExposesHTTPCounters(t *testing.T) {
	f := newRouterFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "cartflow_http_requests_total") {
		t.Fatalf("expected http counters in metrics output")
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleCustomer))
	if resp := f.do(req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newRouterFixture(t)
	path := "/api/admin/v1/orders/" + uuid.NewString() + "/status"

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"status":"shipped"}`))
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleCustomer))
	if resp := f.do(req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"status":"shipped"}`))
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleAdmin))
	if resp := f.do(req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCheckoutIsIdempotentAndRateLimited(t *testing.T) {
	f := newRouterFixture(t)
	token := f.token(t, enums.UserRoleCustomer)
	body := `{"shippingAddressId":"` + uuid.NewString() + `","paymentMethod":"card"}`

	checkout := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		return f.do(req)
	}

	if resp := checkout(""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", resp.Code)
	}

	first := checkout("k-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	replay := checkout("k-1")
	if replay.Code != http.StatusCreated || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d", replay.Code)
	}
	if f.orders.creates != 1 {
		t.Fatalf("expected a single checkout, got %d", f.orders.creates)
	}

	if resp := checkout("k-2"); resp.Code != http.StatusCreated {
		t.Fatalf("expected second checkout 201, got %d", resp.Code)
	}
	if resp := checkout("k-3"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", resp.Code)
	}
}

func TestCancelRequiresIdempotencyKey(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+uuid.NewString()+"/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleCustomer))
	if resp := f.do(req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
