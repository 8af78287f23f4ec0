// Package middleware provides HTTP middleware applied by the router.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/bulletin-api/internal/api/shared"
	"github.com/phrazzld/bulletin-api/internal/platform/logger"
)

// NewTraceMiddleware returns a middleware that adds a trace ID to the request
// context and stores a trace-annotated logger alongside it. It should be
// applied early in the middleware chain so all subsequent handlers have
// access to the trace ID.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Add a trace ID to the context
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			// Store a trace-annotated logger for downstream code
			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
