package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cartflow-backend/api/responses"
	"github.com/angelmondragon/cartflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is implemented by db.Client and redis.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartflow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and fails with 503 when any is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger) http.HandlerFunc {
	checks := map[string]Pinger{"db": dbP, "redis": redisP}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartflow-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		failed := false
		for name, p := range checks {
			if p == nil {
				status[name] = "disabled"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				status[name] = "down"
				failed = true
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.failed", err)
				}
				continue
			}
			status[name] = "ok"
		}

		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(status))
			return
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
