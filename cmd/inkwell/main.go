package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "inkwell",
	Short:         "Import, measure and enhance rich-text documents",
	Long:          `inkwell reads documents into the editor model, reports their character budget and sends them to an inkwell server for enhancement.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(enhanceCmd)
	rootCmd.AddCommand(attachCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("limit", 280, "character budget")
	rootCmd.PersistentFlags().String("server", envOr("INKWELL_SERVER", "http://localhost:8080"), "inkwell server URL")
	rootCmd.PersistentFlags().String("api-key", os.Getenv("INKWELL_API_KEY"), "inkwell API key")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
