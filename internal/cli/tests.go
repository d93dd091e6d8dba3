package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var testsCmd = &cobra.Command{
	Use:   "tests",
	Short: "List all tests in the registry",
	Long:  `List every test declared in the registry file with its variants and status.`,
	RunE:  runTests,
}

func init() {
	rootCmd.AddCommand(testsCmd)
}

func runTests(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	tests := reg.Tests()
	if len(tests) == 0 {
		fmt.Println("No tests in the registry.")
		fmt.Println()
		fmt.Println("Scaffold one with: vgt init")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tVARIANTS\tDEFAULT\tWINDOW")

	now := time.Now()
	for _, test := range tests {
		window := "-"
		if test.StartsAt != nil || test.EndsAt != nil {
			if test.ActiveAt(now) {
				window = "active"
			} else {
				window = "inactive"
			}
		}

		fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%s\t%s\n",
			test.ID,
			test.Name,
			test.Enabled,
			len(test.Variants),
			test.DefaultVariant,
			window,
		)
	}

	return w.Flush()
}
