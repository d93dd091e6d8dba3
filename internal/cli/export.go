package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/variant-goat/internal/events"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <test-id>",
	Short: "Export raw event data",
	Long: `Export raw event data in CSV or JSON format.

Examples:
  vgt export hero --format csv > hero-data.csv
  vgt export hero --format json > hero-data.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	testID := args[0]

	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	if _, ok := reg.Lookup(testID); !ok {
		return fmt.Errorf("test '%s' not found in registry", testID)
	}

	return withEvents(cfg, func(s *events.Store) error {
		evs, err := s.Events(context.Background(), testID)
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}

		if exportFormat == "csv" {
			return exportCSV(evs)
		}
		return exportJSON(evs)
	})
}

func exportCSV(evs []*events.Event) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"id", "timestamp", "test_id", "variant_id", "event_type", "visitor_id", "metadata"}); err != nil {
		return err
	}

	for _, e := range evs {
		meta := ""
		if len(e.Metadata) > 0 {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata: %w", err)
			}
			meta = string(raw)
		}

		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			e.TestID,
			e.VariantID,
			e.EventType,
			e.VisitorID,
			meta,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func exportJSON(evs []*events.Event) error {
	type row struct {
		ID        int64             `json:"id"`
		Timestamp string            `json:"timestamp"`
		TestID    string            `json:"test_id"`
		VariantID string            `json:"variant_id"`
		EventType string            `json:"event_type"`
		VisitorID string            `json:"visitor_id"`
		Metadata  map[string]string `json:"metadata,omitempty"`
	}

	rows := make([]row, 0, len(evs))
	for _, e := range evs {
		rows = append(rows, row{
			ID:        e.ID,
			Timestamp: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			TestID:    e.TestID,
			VariantID: e.VariantID,
			EventType: e.EventType,
			VisitorID: e.VisitorID,
			Metadata:  e.Metadata,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
