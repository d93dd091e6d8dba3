package cli

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gkobilansky/variant-goat/internal/registry"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a test registry",
	Long: `Interactively scaffold a registry file with a first test.

The registry declares the tests and variants the engine serves. It is static:
the engine reads it at startup and never writes it back.

Example:
  vgt init`,
	RunE: runInitRegistry,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// registryFile mirrors the registry YAML schema for scaffolding.
type registryFile struct {
	Tests    map[string]*registry.Test `yaml:"tests"`
	Segments []registry.Segment        `yaml:"segments,omitempty"`
}

func runInitRegistry(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.RegistryPath); err == nil {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("%s exists, overwrite", cfg.RegistryPath),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			if err == promptui.ErrInterrupt {
				os.Exit(0)
			}
			fmt.Println("Aborted.")
			return nil
		}
	}

	testID, err := promptString("Test id", "hero")
	if err != nil {
		return err
	}
	testName, err := promptString("Test name", "Hero Headline")
	if err != nil {
		return err
	}
	controlName, err := promptString("Control variant name", "Control")
	if err != nil {
		return err
	}
	challengerName, err := promptString("Challenger variant name", "Challenger")
	if err != nil {
		return err
	}
	weightA, weightB, err := promptSplit()
	if err != nil {
		return err
	}

	test := scaffoldTest(testName, controlName, challengerName, weightA, weightB)

	out, err := yaml.Marshal(registryFile{Tests: map[string]*registry.Test{testID: test}})
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	if err := os.WriteFile(cfg.RegistryPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}

	fmt.Println()
	fmt.Printf("Wrote %s with test '%s' (%d/%d split)\n", cfg.RegistryPath, testID, weightA, weightB)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  vgt serve                          Start the server")
	fmt.Printf("  vgt resolve %s --visitor alice   Try a resolution\n", testID)
	fmt.Printf("  vgt results %s                   Watch results come in\n", testID)

	return nil
}

// scaffoldTest builds the starter control/challenger test the init flow
// writes into a fresh registry.
func scaffoldTest(name, controlName, challengerName string, weightA, weightB int) *registry.Test {
	return &registry.Test{
		Name:    name,
		Enabled: true,
		Variants: []registry.Variant{
			{ID: "control", Name: controlName, Weight: weightA, Config: map[string]any{"headline": controlName}},
			{ID: "challenger", Name: challengerName, Weight: weightB, Config: map[string]any{"headline": challengerName}},
		},
		DefaultVariant: "control",
	}
}

func promptString(label, def string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: def,
	}
	value, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return "", err
	}
	return value, nil
}

func promptSplit() (int, int, error) {
	splits := []string{"50 / 50", "60 / 40", "90 / 10"}

	prompt := promptui.Select{
		Label: "Traffic split (control / challenger)",
		Items: splits,
		Size:  3,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return 0, 0, err
	}

	switch idx {
	case 1:
		return 60, 40, nil
	case 2:
		return 90, 10, nil
	default:
		return 50, 50, nil
	}
}
