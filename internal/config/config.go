package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/geoquest.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// AdminKey is the shared moderation secret. AdminKeyHash, a bcrypt hash
	// of the same secret, takes precedence when both are set.
	AdminKey     string `env:"ADMIN_KEY"`
	AdminKeyHash string `env:"ADMIN_KEY_HASH"`

	RedisURL string `env:"REDIS_URL"`

	ProximityRadiusM  float64       `env:"PROXIMITY_RADIUS_M" envDefault:"5"`
	PlacementRadiusM  float64       `env:"PLACEMENT_RADIUS_M" envDefault:"50"`
	DefaultMinPoints  int           `env:"DEFAULT_MIN_POINTS" envDefault:"3"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"10m"`

	AdminUIDir string `env:"ADMIN_UI_DIR"`
}

// Load reads an optional .env file from the working directory and then
// parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if c.ProximityRadiusM <= 0 {
		return fmt.Errorf("PROXIMITY_RADIUS_M must be positive, got %v", c.ProximityRadiusM)
	}
	if c.PlacementRadiusM <= 0 {
		return fmt.Errorf("PLACEMENT_RADIUS_M must be positive, got %v", c.PlacementRadiusM)
	}
	if c.DefaultMinPoints < 1 {
		return fmt.Errorf("DEFAULT_MIN_POINTS must be at least 1, got %d", c.DefaultMinPoints)
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", c.ReconcileInterval)
	}
	return nil
}
