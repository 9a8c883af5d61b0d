package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reviewd/internal/config"
	"reviewd/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check reviewd configuration and environment",
	Long: `Run health checks to diagnose common configuration issues.

This command checks for:
- ANTHROPIC_API_KEY in the environment
- Config file validity
- Security pattern pack validity
- Review database accessibility

Exit codes:
  0 - All checks passed
  1 - One or more checks failed`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running reviewd health checks...\n\n")

		var failures []string
		var warnings []string

		// Check 1: API key
		fmt.Printf("%s Anthropic API key\n", cyan("→"))
		if config.APIKey() == "" {
			failures = append(failures, "ANTHROPIC_API_KEY is not set")
			fmt.Printf("  %s ANTHROPIC_API_KEY is not set\n", red("✗"))
		} else {
			fmt.Printf("  %s ANTHROPIC_API_KEY is set\n", green("✓"))
		}

		// Check 2: configuration
		fmt.Printf("%s Configuration\n", cyan("→"))
		cfg, err := config.Load(configPath)
		if err != nil {
			failures = append(failures, fmt.Sprintf("Config invalid: %v", err))
			fmt.Printf("  %s %v\n", red("✗"), err)
			cfg = config.Default()
			_ = cfg.Normalize()
		} else if configPath == "" {
			fmt.Printf("  %s Using defaults and environment (no config file)\n", green("✓"))
		} else {
			fmt.Printf("  %s Loaded %s\n", green("✓"), configPath)
		}
		fmt.Printf("    listen=%s model=%s chunk_size=%d\n", cfg.Listen, cfg.Model, cfg.ChunkSize)

		// Check 3: pattern pack
		fmt.Printf("%s Security pattern pack\n", cyan("→"))
		if cfg.PatternPack == "" {
			fmt.Printf("  %s Using built-in patterns only\n", green("✓"))
		} else if _, err := buildRegistry(cfg); err != nil {
			failures = append(failures, fmt.Sprintf("Pattern pack invalid: %v", err))
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			fmt.Printf("  %s Loaded %s\n", green("✓"), cfg.PatternPack)
		}

		// Check 4: review database
		fmt.Printf("%s Review database\n", cyan("→"))
		if cfg.DBPath == "" {
			warnings = append(warnings, "Review history disabled (no db_path configured)")
			fmt.Printf("  %s Review history disabled\n", yellow("○"))
		} else if s, err := store.Open(cfg.DBPath); err != nil {
			failures = append(failures, fmt.Sprintf("Database not accessible: %v", err))
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			_ = s.Close()
			fmt.Printf("  %s %s is writable\n", green("✓"), cfg.DBPath)
		}

		fmt.Println()
		for _, w := range warnings {
			fmt.Printf("%s %s\n", yellow("warning:"), w)
		}
		if len(failures) > 0 {
			fmt.Printf("%s %d check(s) failed\n", red("✗"), len(failures))
			os.Exit(1)
		}
		fmt.Printf("%s All checks passed\n", green("✓"))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
