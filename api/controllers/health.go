package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mahendraputra/lokapasar-backend/api/responses"
	"github.com/mahendraputra/lokapasar-backend/pkg/config"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Lokapasar-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every hard dependency; any failing probe flips the
// response to 503 so the balancer drains this instance.
func HealthReady(cfg *config.Config, logg *logger.Logger, probes map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Lokapasar-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, probe := range probes {
			if probe == nil {
				status[name] = "skipped"
				continue
			}
			if err := probe.Ping(ctx); err != nil {
				healthy = false
				status[name] = "down"
				if logg != nil {
					probeCtx := logg.WithField(ctx, "probe", name)
					logg.Error(probeCtx, "readiness probe failed", err)
				}
				continue
			}
			status[name] = "ok"
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

