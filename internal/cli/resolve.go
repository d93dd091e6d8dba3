package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gkobilansky/variant-goat/internal/analytics"
	"github.com/gkobilansky/variant-goat/internal/assign"
	"github.com/gkobilansky/variant-goat/internal/events"
	"github.com/gkobilansky/variant-goat/internal/storage"
)

var resolveVisitor string

var resolveCmd = &cobra.Command{
	Use:   "resolve <test-id>",
	Short: "Resolve a visitor to a variant",
	Long: `Resolve a visitor to a variant, exactly as the server would.

The assignment persists in the local assignment store, so resolving the same
visitor again returns the same variant.

Examples:
  vgt resolve hero --visitor alice
  vgt resolve hero`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveVisitor, "visitor", "", "visitor id (generated when omitted)")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	testID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
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

	visitor := resolveVisitor
	if visitor == "" {
		visitor = uuid.NewString()
		fmt.Printf("Visitor: %s (generated)\n", visitor)
	}

	db, err := storage.OpenBadger(cfg.DataDir, nil)
	if err != nil {
		return fmt.Errorf("failed to open assignment store: %w", err)
	}
	defer db.Close()

	return withEvents(cfg, func(ev *events.Store) error {
		store := storage.NewDual(storage.NewBadgerTier(db, visitor, log), nil, cfg.StoragePrefix, cfg.CookieName)
		emitter := analytics.NewEmitter(cfg, store, ev.SinkFor(visitor), log)
		engine := assign.New(cfg, reg, store, emitter, log)

		v, ok := engine.Resolve(testID, visitor)
		if !ok {
			return fmt.Errorf("no variant available for test '%s'", testID)
		}

		fmt.Printf("Test:    %s\n", testID)
		fmt.Printf("Variant: %s (%s)\n", v.ID, v.Name)
		if len(v.Config) > 0 {
			out, err := json.MarshalIndent(v.Config, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Printf("Config:\n%s\n", out)
		}
		return nil
	})
}
