package cli

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gkobilansky/variant-goat/internal/config"
	"github.com/gkobilansky/variant-goat/internal/events"
	"github.com/gkobilansky/variant-goat/internal/registry"
)

// loadConfig reads the environment configuration and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if registryPath != "" {
		cfg.RegistryPath = registryPath
	}
	if eventsDB != "" {
		cfg.EventsDB = eventsDB
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if debugMode {
		cfg.Debug = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// withEvents opens the events database, executes the function, and handles cleanup.
func withEvents(cfg *config.Config, fn func(*events.Store) error) error {
	s, err := events.Open(cfg.EventsDB)
	if err != nil {
		return fmt.Errorf("failed to open events database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry %s: %w", cfg.RegistryPath, err)
	}
	return reg, nil
}

// tokenFilePath returns where the running server drops its console token.
func tokenFilePath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.EventsDB), ".vgt-token")
}

func formatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
