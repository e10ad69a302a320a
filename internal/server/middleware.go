package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/playperu/geoquest/internal/geoquest"
)

// AdminKeyHeader carries the moderator key. The services check it; the
// router only forwards it.
const AdminKeyHeader = "X-Admin-Key"

func adminKey(r *http.Request) string {
	return r.Header.Get(AdminKeyHeader)
}

type ctxKey int

const ctxKeyRole ctxKey = iota

// roleOf maps a collection segment such as "judges" to its role.
func roleOf(collection string) geoquest.Role {
	switch collection {
	case "judges":
		return geoquest.RoleJudge
	case "players":
		return geoquest.RolePlayer
	}
	return ""
}

// withRole pins the account role for the routes mounted under a collection.
func withRole(collection string) func(http.Handler) http.Handler {
	role := roleOf(collection)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxKeyRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accountRole reads the role pinned by withRole, falling back to the
// {role} URL segment of the admin routes.
func accountRole(r *http.Request) geoquest.Role {
	if role, ok := r.Context().Value(ctxKeyRole).(geoquest.Role); ok {
		return role
	}
	return roleOf(chi.URLParam(r, "role"))
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				}
				if route := chi.RouteContext(r.Context()); route != nil {
					attrs = append(attrs, "route", route.RoutePattern())
				}
				logger.Info("http request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
