package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/cartflow-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/cartflow-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/cartflow-backend/api/controllers/orders"
	"github.com/angelmondragon/cartflow-backend/api/middleware"
	"github.com/angelmondragon/cartflow-backend/internal/cart"
	"github.com/angelmondragon/cartflow-backend/internal/orders"
	"github.com/angelmondragon/cartflow-backend/pkg/config"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
	"github.com/angelmondragon/cartflow-backend/pkg/metrics"
	"github.com/angelmondragon/cartflow-backend/pkg/redis"
)

// RedisStore is the redis surface the API needs: idempotency, rate limiting and readiness.
type RedisStore interface {
	redis.IdempotencyStore
	redis.RateLimiter
	redis.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisStore RedisStore,
	cartService cart.Service,
	ordersService orders.Service,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		limiter          redis.RateLimiter
		redisPinger      controllers.Pinger
	)
	if redisStore != nil {
		idempotencyStore, limiter, redisPinger = redisStore, redisStore, redisStore
	}

	checkoutPolicy := middleware.RateLimitPolicy{
		Name:   "checkout",
		Limit:  cfg.CheckoutRateLimit.Limit,
		Window: cfg.CheckoutRateLimit.Window,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Put("/items/{itemId}", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.UserRateLimit(checkoutPolicy, limiter, logg)).
				Post("/", ordercontrollers.CreateOrder(ordersService, logg))
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Put("/{orderId}/cancel", ordercontrollers.CancelOrder(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(ordersService, logg))
			r.Put("/{orderId}/status", ordercontrollers.AdminUpdateStatus(ordersService, logg))
		})
	})

	return r
}
