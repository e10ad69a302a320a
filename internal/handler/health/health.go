// Package health serves the readiness endpoint that probes the SQLite
// database and, when configured, the Redis event relay.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const checkTimeout = 3 * time.Second

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// DB pings the database pool.
func DB(db *sql.DB) Checker {
	return CheckerFunc(db.PingContext)
}

// Redis pings the Redis client.
func Redis(rdb *redis.Client) Checker {
	return CheckerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
}

type Handler struct {
	checks map[string]Checker
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type result struct {
	Status string `json:"status"`
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]result `json:"checks"`
}

// check runs every probe concurrently. One failure turns the whole
// response into a 503.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		resp = response{Status: "ok", Checks: make(map[string]result, len(h.checks))}
		g    errgroup.Group
	)
	for name, c := range h.checks {
		g.Go(func() error {
			res := result{Status: "ok"}
			if err := c.Check(ctx); err != nil {
				h.logger.Error("health check failed", "name", name, "error", err)
				res.Status = "error"
			}
			mu.Lock()
			resp.Checks[name] = res
			if res.Status != "ok" {
				resp.Status = "degraded"
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
