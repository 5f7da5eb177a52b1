package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/session"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
	"github.com/Aimecol/hforher/pkg/httputil"
	"github.com/Aimecol/hforher/pkg/logger"
	"github.com/Aimecol/hforher/pkg/middleware"
)

// Session resolves the shopper session from the X-Session-ID header. A
// request without one is given a fresh id; the id in use is always echoed
// back so the client can keep it. The middleware also installs the
// notification collector for the request.
func Session(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(middleware.SessionHeader))
			if id == "" {
				id = session.NewID()
			} else if !session.ValidID(id) {
				httputil.WriteError(w, r, apperrors.InvalidInput("X-Session-ID must be 1-128 characters of letters, digits, '-' or '_'"), l)
				return
			}
			w.Header().Set(middleware.SessionHeader, id)

			ctx := r.Context()
			if logger.SessionIDFromContext(ctx) != id {
				ctx = logger.WithSessionID(ctx, id)
				ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("session_id", id)))
			}
			ctx, _ = notify.WithCollector(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionID returns the id installed by Session.
func sessionID(r *http.Request) string {
	return logger.SessionIDFromContext(r.Context())
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// writeData writes data in the envelope together with any toasts raised
// while handling the request.
func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	resp := httputil.Response{Data: data}
	if c := notify.FromContext(r.Context()); c != nil {
		if ns := c.Drain(); len(ns) > 0 {
			resp.Notifications = ns
		}
	}
	httputil.WriteJSON(w, status, resp)
}
