package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "reviewd",
	Short: "AI code review service",
	Long: `reviewd serves an AI-powered code review assistant over HTTP.

Snippets posted to /review are analyzed by an Anthropic model armed
with heuristic security, complexity, and quality tools, and the
four-section review is streamed back as server-sent events.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
