package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reviewd/internal/agent"
	"reviewd/internal/analyzer"
	"reviewd/internal/config"
	"reviewd/internal/server"
	"reviewd/internal/store"
)

var (
	serveListen string
	serveModel  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the code review HTTP server",
	Long: `Start the HTTP server.

Requires ANTHROPIC_API_KEY in the environment. Configuration comes
from the optional YAML file (--config), REVIEWD_* environment
variables, and flags, in increasing order of precedence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if serveListen != "" {
			cfg.Listen = serveListen
		}
		if serveModel != "" {
			cfg.Model = serveModel
		}

		logger := newLogger(cfg.LogLevel)
		slog.SetDefault(logger)

		registry, err := buildRegistry(cfg)
		if err != nil {
			return err
		}

		reviewer, err := agent.New(agent.Options{
			APIKey:   config.APIKey(),
			Model:    cfg.Model,
			Registry: registry,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		var st server.ReviewStore
		if cfg.DBPath != "" {
			s, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening review database: %w", err)
			}
			defer s.Close()
			st = s
			logger.Info("review history enabled", "db_path", cfg.DBPath,
				"cache_ttl", cfg.CacheTTLDuration())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		api := server.NewAPI(reviewer, st, cfg, logger)
		return api.Run(ctx, cfg.Listen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "Anthropic model id (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRegistry assembles the analyzer set, extending the security
// pattern table from a pattern pack file when configured.
func buildRegistry(cfg *config.Config) (*analyzer.Registry, error) {
	sec := analyzer.NewSecurityAnalyzer()
	if cfg.PatternPack != "" {
		pack, err := analyzer.LoadPatternPack(cfg.PatternPack)
		if err != nil {
			return nil, fmt.Errorf("loading pattern pack: %w", err)
		}
		if pack != nil {
			sec.Extend(pack.Patterns)
		}
	}
	return analyzer.NewRegistry(sec, analyzer.NewComplexityAnalyzer(), analyzer.NewQualityAnalyzer())
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
