package cli

import (
	"github.com/spf13/cobra"
)

var (
	registryPath string
	eventsDB     string
	dataDir      string
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "vgt",
	Short: "Variant Goat - a minimal, self-hosted variant assignment engine",
	Long: `🐐 Variant Goat assigns visitors to experiment variants, keeps those
assignments stable across sessions, and records the analytics events that
make the experiment readable. Single Go binary, embedded storage.

Running without a subcommand starts the server (same as 'vgt serve').`,
	RunE: runServe, // Default action is to start server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags; empty values defer to VGT_* environment variables.
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "test registry file (default $VGT_REGISTRY or ./tests.yaml)")
	rootCmd.PersistentFlags().StringVar(&eventsDB, "db", "", "events database path (default $VGT_EVENTS_DB or ./vgt.db)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "assignment store directory (default $VGT_DATA_DIR or ./vgt-data)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode (force overrides, debug console, event tracing)")
}
