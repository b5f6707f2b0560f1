package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/fanout/core/logger"
)

// Readiness verifies all service dependencies are functioning.
// Returns "READY" if all checks pass, 503 Service Unavailable if any fail.
//
// Example:
//
//	readinessHandler := health.Readiness(
//		logger,
//		relay.Healthcheck,
//	)
//	mux.Handle("GET /health/ready", readinessHandler)
func Readiness(log *slog.Logger, fn ...func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, f := range fn {
			if err := f(ctx); err != nil {
				log.ErrorContext(ctx, "Readiness check failed", logger.Error(err))
				writeString(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
				return
			}
		}

		writeString(w, http.StatusOK, "READY")
	})
}
