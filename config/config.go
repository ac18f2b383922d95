// Package config loads the GOAPCore application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/goapcore/engine/planner"
)

// DefaultPath is used when neither --config nor GOAPCORE_CONFIG is set.
const DefaultPath = "goapcore.yaml"

// Config holds all configuration for the planner front ends.
type Config struct {
	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json

	// Planning
	MaxDepth int  `yaml:"max_depth"` // longest behavior chain per branch
	Workers  int  `yaml:"workers"`   // parallel agents in PlanAll
	Trace    bool `yaml:"trace"`     // start with search tracing on

	// Snapshots
	SaveDir string `yaml:"save_dir"`

	// Domain reload (--watch)
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Default returns Config with sensible defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		MaxDepth:  planner.DefaultMaxDepth,
		Workers:   4,
		SaveDir:   filepath.Join(home, ".goapcore", "saves"),

		WatchDebounce: 250 * time.Millisecond,
	}
}

// Load loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects values the planner cannot run with.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ParseLogLevel maps a config string to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
}
