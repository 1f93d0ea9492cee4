package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/etho/internal/api"
	"github.com/jackzampolin/etho/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "etho",
	Short: "Pet behavior analysis service backed by multimodal video inference",
	Long: `Etho analyzes pet videos with a multimodal model and returns a
structured ethological assessment.

Each uploaded video is sent to Gemini together with an ethological research
instruction document. The free-form model response is parsed, normalized
against a canonical schema, and returned as a stable JSON document with
distress scoring, FACS observations, and first-person interpretation lines.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.etho/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Best effort; a missing .env file is not an error
		_ = godotenv.Load()
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
