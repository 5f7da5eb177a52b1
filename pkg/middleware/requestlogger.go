package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Aimecol/hforher/pkg/logger"
)

// SessionHeader identifies the shopper session a request belongs to.
const SessionHeader = "X-Session-ID"

// RequestLogger stores a request-scoped logger in the context carrying the
// correlation, session and trace identifiers. Mount it after RequestLogging
// and Tracing so those identifiers are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logger.SessionIDFromContext(ctx) == "" {
				if id := r.Header.Get(SessionHeader); id != "" {
					ctx = logger.WithSessionID(ctx, id)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
