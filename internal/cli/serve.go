package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gkobilansky/variant-goat/internal/events"
	"github.com/gkobilansky/variant-goat/internal/server"
	"github.com/gkobilansky/variant-goat/internal/storage"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the variant-goat HTTP server.

The server provides:
  - Resolve endpoint assigning visitors to variants
  - Beacon endpoint for interaction and conversion events
  - Registry API and health check
  - Debug console (debug mode only)

Example:
  vgt serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default $VGT_PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	var badgerLog *zap.Logger
	if cfg.Debug {
		badgerLog = log
	}
	db, err := storage.OpenBadger(cfg.DataDir, badgerLog)
	if err != nil {
		return fmt.Errorf("failed to open assignment store: %w", err)
	}
	defer db.Close()

	return withEvents(cfg, func(ev *events.Store) error {
		srv := server.New(cfg, reg, db, ev, log, tokenFilePath(cfg))
		return srv.Start()
	})
}
