package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/etho/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Etho server via HTTP.

These commands require a running server (etho serve).
Use --server to specify a custom server URL.

Examples:
  etho api health               # Check server health
  etho api models               # List available analysis models
  etho api analyze clip.mp4     # Analyze a pet video`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8000", "Server URL",
	)

	for _, ep := range endpoints.All(endpoints.Config{}) {
		if cmd := ep.Command(getServerURL); cmd != nil {
			apiCmd.AddCommand(cmd)
		}
	}

	rootCmd.AddCommand(apiCmd)
}
