package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/playperu/geoquest/internal/accounts"
	"github.com/playperu/geoquest/internal/events"
	"github.com/playperu/geoquest/internal/games"
	"github.com/playperu/geoquest/internal/points"
	"github.com/playperu/geoquest/internal/progress"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Games    *games.Service
	Points   *points.Service
	Progress *progress.Engine
	Accounts *accounts.Service
	// Broker feeds the SSE and WebSocket streams.
	Broker *events.Broker
	// AdminUIDir, when set, is served as a single-page app for unmatched paths.
	AdminUIDir string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the server. mount attaches routes owned elsewhere, such as
// the health handler.
func New(addr string, logger *slog.Logger, deps Deps, mount func(chi.Router)) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newRouter(logger, deps, mount),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func newRouter(logger *slog.Logger, deps Deps, mount func(chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, logger, deps)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
