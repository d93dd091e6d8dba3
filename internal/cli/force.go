package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/variant-goat/internal/analytics"
	"github.com/gkobilansky/variant-goat/internal/assign"
	"github.com/gkobilansky/variant-goat/internal/storage"
)

var forceVisitor string

var forceCmd = &cobra.Command{
	Use:   "force <test-id> <variant-id>",
	Short: "Pin a visitor to a variant (debug mode only)",
	Long: `Write a variant assignment directly into storage, bypassing weighted
selection. The variant id is not validated against the test.

Only honored in debug mode; otherwise the command is a no-op with a warning.

Example:
  vgt force hero b --visitor alice --debug`,
	Args: cobra.ExactArgs(2),
	RunE: runForce,
}

func init() {
	forceCmd.Flags().StringVar(&forceVisitor, "visitor", "", "visitor id (required)")
	forceCmd.MarkFlagRequired("visitor")
	rootCmd.AddCommand(forceCmd)
}

func runForce(cmd *cobra.Command, args []string) error {
	testID, variantID := args[0], args[1]

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

	db, err := storage.OpenBadger(cfg.DataDir, nil)
	if err != nil {
		return fmt.Errorf("failed to open assignment store: %w", err)
	}
	defer db.Close()

	store := storage.NewDual(storage.NewBadgerTier(db, forceVisitor, log), nil, cfg.StoragePrefix, cfg.CookieName)
	emitter := analytics.NewEmitter(cfg, store, nil, log)
	engine := assign.New(cfg, reg, store, emitter, log)

	engine.ForceVariant(testID, variantID)

	if cfg.Debug {
		fmt.Printf("Forced visitor '%s' to variant '%s' for test '%s'\n", forceVisitor, variantID, testID)
	}
	return nil
}
