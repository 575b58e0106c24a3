package middleware

import (
	"log/slog"
	"net/http"

	"github.com/riturajsingh8919/anti-romantic/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// trace_id, span_id and the request method, then stores it in context via
// logger.NewContext. Downstream code retrieves it with logger.FromContext.
//
// Mount it after RequestLogging (which sets correlation_id) and Tracing
// (which sets the span context).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithAttrs(r.Context(), slog.String("http_method", r.Method))
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
