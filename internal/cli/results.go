package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/variant-goat/internal/events"
)

var resultsCmd = &cobra.Command{
	Use:   "results <test-id>",
	Short: "Show results for a test",
	Long:  `Show per-variant exposure, conversions, and conversion rates.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	testID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	test, ok := reg.Lookup(testID)
	if !ok {
		return fmt.Errorf("test '%s' not found in registry", testID)
	}

	return withEvents(cfg, func(s *events.Store) error {
		stats, err := s.VariantStats(context.Background(), testID)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		byVariant := make(map[string]events.VariantStats, len(stats))
		for _, st := range stats {
			byVariant[st.VariantID] = st
		}

		// Leader by raw conversion rate; significance is somebody else's job.
		leading := ""
		best := -1.0
		for _, st := range stats {
			if st.Views == 0 {
				continue
			}
			rate := float64(st.Conversions) / float64(st.Views)
			if rate > best {
				best = rate
				leading = st.VariantID
			}
		}

		fmt.Printf("TEST: %s\n", test.ID)
		if test.Name != "" {
			fmt.Printf("NAME: %s\n", test.Name)
		}
		if test.Description != "" {
			fmt.Printf("GOAL: %s\n", test.Description)
		}
		fmt.Println()

		fmt.Println("VARIANT           WEIGHT   VIEWS    CONVERSIONS  RATE")
		fmt.Println(strings.Repeat("─", 58))

		for _, v := range test.Variants {
			st := byVariant[v.ID]

			rateStr := "N/A"
			if st.Views > 0 {
				rateStr = formatPercent(float64(st.Conversions) / float64(st.Views))
			}

			indicator := ""
			if v.ID == leading && len(test.Variants) > 1 {
				indicator = " ← LEADING"
			}

			name := v.ID
			if len(name) > 16 {
				name = name[:13] + "..."
			}

			fmt.Printf("%-16s  %-7d  %-7d  %-11d  %-7s%s\n",
				name,
				v.Weight,
				st.Views,
				st.Conversions,
				rateStr,
				indicator,
			)
		}

		return nil
	})
}
