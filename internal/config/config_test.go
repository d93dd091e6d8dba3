package config_test

import (
	"testing"
	"time"

	"github.com/gkobilansky/variant-goat/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Enabled {
		t.Error("Enabled should default to true")
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
	if !cfg.Analytics {
		t.Error("Analytics should default to true")
	}
	if cfg.StoragePrefix != "vgt_test_" {
		t.Errorf("StoragePrefix = %q", cfg.StoragePrefix)
	}
	if cfg.CookieName != "vgt_assignments" {
		t.Errorf("CookieName = %q", cfg.CookieName)
	}
	if cfg.CookieDays != 30 {
		t.Errorf("CookieDays = %d, want 30", cfg.CookieDays)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VGT_ENABLED", "false")
	t.Setenv("VGT_DEBUG", "true")
	t.Setenv("VGT_COOKIE_DAYS", "7")
	t.Setenv("VGT_COOKIE_NAME", "custom_assignments")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Enabled {
		t.Error("Enabled should be overridden to false")
	}
	if !cfg.Debug {
		t.Error("Debug should be overridden to true")
	}
	if cfg.CookieDays != 7 {
		t.Errorf("CookieDays = %d, want 7", cfg.CookieDays)
	}
	if cfg.CookieName != "custom_assignments" {
		t.Errorf("CookieName = %q", cfg.CookieName)
	}
}

func TestCookieTTL(t *testing.T) {
	cfg := config.Default()
	cfg.CookieDays = 7

	if got := cfg.CookieTTL(); got != 7*24*time.Hour {
		t.Errorf("CookieTTL = %v, want 168h", got)
	}
}
