// Package config loads reviewd configuration from an optional YAML file
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultModel is used when neither config file nor environment names one.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Config holds the service configuration. Durations are YAML strings
// ("10ms", "1h") parsed by Normalize.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// Model is the Anthropic model id used for reviews.
	Model string `yaml:"model"`

	// ChunkSize is the number of characters per SSE content frame.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkDelay is the spacing between content frames.
	ChunkDelay string `yaml:"chunk_delay"`

	// RateLimitRPS throttles /review per client IP; zero disables.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// DBPath is the SQLite review history database; empty disables the store.
	DBPath string `yaml:"db_path"`
	// CacheTTL replays a stored review for byte-identical code within
	// this window; zero or empty disables the cache.
	CacheTTL string `yaml:"cache_ttl"`

	// PatternPack optionally extends the security pattern table.
	PatternPack string `yaml:"pattern_pack"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	chunkDelay time.Duration
	cacheTTL   time.Duration
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		Model:          DefaultModel,
		ChunkSize:      50,
		ChunkDelay:     "10ms",
		RateLimitRPS:   0,
		RateLimitBurst: 5,
		DBPath:         "",
		CacheTTL:       "",
		LogLevel:       "info",
	}
}

// Load reads the config file at path, if any, applies environment
// overrides, and validates. An empty path uses defaults plus env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from REVIEWD_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("REVIEWD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("REVIEWD_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("REVIEWD_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkSize = n
		}
	}
	if v := os.Getenv("REVIEWD_CHUNK_DELAY"); v != "" {
		c.ChunkDelay = v
	}
	if v := os.Getenv("REVIEWD_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	if v := os.Getenv("REVIEWD_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("REVIEWD_CACHE_TTL"); v != "" {
		c.CacheTTL = v
	}
	if v := os.Getenv("REVIEWD_PATTERN_PACK"); v != "" {
		c.PatternPack = v
	}
	if v := os.Getenv("REVIEWD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Normalize parses duration strings and validates ranges.
func (c *Config) Normalize() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}

	if c.ChunkDelay != "" {
		d, err := time.ParseDuration(c.ChunkDelay)
		if err != nil {
			return fmt.Errorf("invalid chunk_delay %q: %w", c.ChunkDelay, err)
		}
		if d < 0 {
			return fmt.Errorf("chunk_delay must not be negative")
		}
		c.chunkDelay = d
	}

	if c.CacheTTL != "" {
		d, err := time.ParseDuration(c.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache_ttl %q: %w", c.CacheTTL, err)
		}
		if d < 0 {
			return fmt.Errorf("cache_ttl must not be negative")
		}
		c.cacheTTL = d
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must not be negative")
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	return nil
}

// ChunkDelayDuration returns the parsed chunk delay.
func (c *Config) ChunkDelayDuration() time.Duration { return c.chunkDelay }

// CacheTTLDuration returns the parsed cache TTL; zero means disabled.
func (c *Config) CacheTTLDuration() time.Duration { return c.cacheTTL }

// APIKey reads the Anthropic API key from the environment. It is never
// stored in the config file.
func APIKey() string { return os.Getenv("ANTHROPIC_API_KEY") }
