package middleware

import (
	"log/slog"
	"net/http"

	"github.com/pwerioflow/link/pkg/logger"
)

// RequestLogger stores a logger enriched with every context field known so
// far (correlation, seller, cart, trace) for handlers to pick up with
// logger.FromContext. Mount it after RequestLogging and Tracing, and again
// after Auth if seller_id should be included.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
