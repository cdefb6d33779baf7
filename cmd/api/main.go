package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/cartflow-backend/api/routes"
	"github.com/angelmondragon/cartflow-backend/internal/address"
	"github.com/angelmondragon/cartflow-backend/internal/cart"
	"github.com/angelmondragon/cartflow-backend/internal/catalog"
	"github.com/angelmondragon/cartflow-backend/internal/inventory"
	"github.com/angelmondragon/cartflow-backend/internal/orders"
	"github.com/angelmondragon/cartflow-backend/pkg/config"
	"github.com/angelmondragon/cartflow-backend/pkg/db"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
	"github.com/angelmondragon/cartflow-backend/pkg/metrics"
	"github.com/angelmondragon/cartflow-backend/pkg/migrate"
	"github.com/angelmondragon/cartflow-backend/pkg/outbox"
	"github.com/angelmondragon/cartflow-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.IsDev(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisStore routes.RedisStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisStore = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, idempotency and rate limiting disabled")
	}

	var (
		reg            *prometheus.Registry
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	// A nil registerer yields no-op metrics.
	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}

	gormDB := dbClient.DB()
	cartService, err := cart.NewService(cart.NewRepository(gormDB), catalog.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Tx:        dbClient,
		Orders:    orders.NewRepository(gormDB),
		Carts:     cartService,
		Addresses: address.NewRepository(gormDB),
		Inventory: inventory.NewLedger(),
		Outbox:    outbox.NewService(outbox.NewRepository(gormDB), logg),
		Policy:    orders.PolicyFromConfig(cfg.Orders),
		Metrics:   metrics.NewOrderMetrics(registerer),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisStore,
			cartService,
			ordersService,
			metrics.NewHTTPMetrics(registerer),
			metricsHandler,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(logCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
