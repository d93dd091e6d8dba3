package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show the debug console token",
	Long: `Show the access token for the running server's debug console.

Use this when you've scrolled past the startup message.

Example:
  vgt token`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(tokenFilePath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no server running. Start with: vgt serve --debug")
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("token file is empty. Restart the server with: vgt serve --debug")
	}

	fmt.Printf("Debug console: http://localhost:%d/debug/info?token=%s\n", cfg.Port, token)
	return nil
}
