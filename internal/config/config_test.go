package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADMIN_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.ProximityRadiusM != 5 {
		t.Errorf("ProximityRadiusM = %v, want 5", cfg.ProximityRadiusM)
	}
	if cfg.DefaultMinPoints != 3 {
		t.Errorf("DefaultMinPoints = %d, want 3", cfg.DefaultMinPoints)
	}
	if cfg.ReconcileInterval != 10*time.Minute {
		t.Errorf("ReconcileInterval = %s, want 10m", cfg.ReconcileInterval)
	}
	if cfg.AdminKey != "secret" {
		t.Errorf("AdminKey = %q, want secret", cfg.AdminKey)
	}
}

func TestLoadRejectsBadRadius(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROXIMITY_RADIUS_M", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero proximity radius")
	}
}
