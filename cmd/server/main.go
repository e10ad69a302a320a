package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/geoquest/internal/accounts"
	"github.com/playperu/geoquest/internal/admin"
	"github.com/playperu/geoquest/internal/config"
	"github.com/playperu/geoquest/internal/database"
	"github.com/playperu/geoquest/internal/events"
	"github.com/playperu/geoquest/internal/games"
	"github.com/playperu/geoquest/internal/geoquest"
	"github.com/playperu/geoquest/internal/handler/health"
	"github.com/playperu/geoquest/internal/jobs"
	"github.com/playperu/geoquest/internal/migrations"
	"github.com/playperu/geoquest/internal/points"
	"github.com/playperu/geoquest/internal/progress"
	"github.com/playperu/geoquest/internal/server"
	"github.com/playperu/geoquest/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	checks := map[string]health.Checker{"sqlite": health.DB(db)}
	g, gctx := errgroup.WithContext(ctx)

	// --- Events ---
	broker := events.NewBroker()
	var publisher geoquest.Publisher = broker
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		relay := events.NewRedisRelay(rdb, broker, logger)
		publisher = relay
		checks["redis"] = health.Redis(rdb)
		g.Go(func() error { return relay.Run(gctx) })
	}

	// --- Services ---
	gate := admin.NewGate(cfg.AdminKey, cfg.AdminKeyHash)
	if !gate.Configured() {
		logger.Warn("no admin key configured, moderation endpoints will refuse every request")
	}

	st := store.New(db)
	pointSvc := points.New(st, st, gate, logger, cfg.PlacementRadiusM)
	gameSvc := games.New(st, st, gate, publisher, logger, cfg.DefaultMinPoints)
	engine := progress.New(progress.Options{
		Progress:  st,
		Points:    st,
		Games:     st,
		Unlocker:  pointSvc,
		Gate:      gate,
		Publisher: publisher,
		Logger:    logger,
		Radius:    cfg.ProximityRadiusM,
	})
	accountSvc := accounts.New(st, gate, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Games:      gameSvc,
		Points:     pointSvc,
		Progress:   engine,
		Accounts:   accountSvc,
		Broker:     broker,
		AdminUIDir: cfg.AdminUIDir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		return jobs.Run(gctx, engine, cfg.ReconcileInterval, logger)
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
