package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process-wide engine settings. Everything comes from the
// environment so a deployment can flip flags without rebuilding. The engine
// only ever reads these values.
type Config struct {
	// Enabled turns variant assignment on or off globally. When off, every
	// resolution returns the test's default variant.
	Enabled bool `env:"VGT_ENABLED" envDefault:"true"`

	// Debug unlocks the debug console and the force-variant override, and
	// surfaces every analytics event on the diagnostic log.
	Debug bool `env:"VGT_DEBUG" envDefault:"false"`

	// Analytics gates event emission. When off the emitter is a no-op.
	Analytics bool `env:"VGT_ANALYTICS" envDefault:"true"`

	// StoragePrefix namespaces per-test entries in the primary store.
	StoragePrefix string `env:"VGT_STORAGE_PREFIX" envDefault:"vgt_test_"`

	// CookieName is the single mirror entry holding all assignments.
	CookieName string `env:"VGT_COOKIE_NAME" envDefault:"vgt_assignments"`

	// CookieDays is the mirror expiry, in days from write time.
	CookieDays int `env:"VGT_COOKIE_DAYS" envDefault:"30"`

	// VisitorCookie names the cookie carrying the generated visitor id.
	VisitorCookie string `env:"VGT_VISITOR_COOKIE" envDefault:"vgt_vid"`

	RegistryPath string `env:"VGT_REGISTRY" envDefault:"./tests.yaml"`
	DataDir      string `env:"VGT_DATA_DIR" envDefault:"./vgt-data"`
	EventsDB     string `env:"VGT_EVENTS_DB" envDefault:"./vgt.db"`
	Port         int    `env:"VGT_PORT" envDefault:"8080"`
}

// Load reads configuration from VGT_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with no environment overrides applied.
func Default() *Config {
	return &Config{
		Enabled:       true,
		Analytics:     true,
		StoragePrefix: "vgt_test_",
		CookieName:    "vgt_assignments",
		CookieDays:    30,
		VisitorCookie: "vgt_vid",
		RegistryPath:  "./tests.yaml",
		DataDir:       "./vgt-data",
		EventsDB:      "./vgt.db",
		Port:          8080,
	}
}

// CookieTTL converts the day-based expiry into a duration.
func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.CookieDays) * 24 * time.Hour
}
