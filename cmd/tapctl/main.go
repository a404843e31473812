package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tapctl",
	Short: "Beep tap CLI - drive the tap agent and simulate terminals",
	Long: `tapctl talks to a running tap agent and to the relay server.

Examples:
  # Session control
  tapctl status
  tapctl focus
  tapctl card set 637805123456789

  # Feed a decoded QR frame to the agent
  tapctl scan 3f2b8c1e-9d4a-4e6b-8f10-2a3b4c5d6e7f

  # Act as a fare terminal on the relay
  tapctl terminal --relay ws://localhost:8191/v1/relay`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(blurCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(permissionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(terminalCmd)
	rootCmd.AddCommand(waitCmd)

	rootCmd.PersistentFlags().String("agent", envOr("TAP_AGENT_URL", "http://localhost:8190"), "Tap agent base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("TAP_AGENT_TOKEN"), "Bearer token for the agent and relay")
	rootCmd.PersistentFlags().Duration("timeout", defaultTimeout, "Request timeout")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
