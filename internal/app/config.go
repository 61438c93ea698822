package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	FormulaPath string // hcl files
	Prefix      string
	CacheDir    string

	LogFormat string
	LogLevel  string
	Workers   int
	Timeout   time.Duration

	MaxRetries  uint64
	GitDepth    int
	GitHubToken string
	// Force rebuilds formulas that are already up to date.
	Force bool
}

// NewConfig validates cfg and fills in derived defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.FormulaPath == "" {
		return nil, errors.New("FormulaPath is a required configuration field and cannot be empty")
	}
	if cfg.Prefix == "" {
		return nil, errors.New("Prefix is a required configuration field and cannot be empty")
	}
	if !filepath.IsAbs(cfg.Prefix) {
		return nil, fmt.Errorf("prefix must be an absolute path, got %q", cfg.Prefix)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.Prefix, "cache")
	}
	return &cfg, nil
}
