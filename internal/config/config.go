// Package config provides a unified configuration system for the
// reconciliation engine, trimmed from the teacher's internal/config
// package (Config{Engine, Performance, Logging, Features} loaded from
// YAML + env-var overrides) to the fields an Agent actually needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document (spec.md's AMBIENT
// STACK section "internal/config").
type Config struct {
	Agent   AgentConfig   `yaml:"agent" json:"agent"`
	Planner PlannerConfig `yaml:"planner" json:"planner"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	Version string `yaml:"version" json:"version"`
	Profile string `yaml:"profile" json:"profile"`
}

// AgentConfig mirrors agent.Options' tunables.
type AgentConfig struct {
	MinWaitMs     int     `yaml:"min_wait_ms" json:"min_wait_ms" default:"200" env:"RECONCILE_MIN_WAIT_MS"`
	MaxRetries    int     `yaml:"max_retries" json:"max_retries" default:"5" env:"RECONCILE_MAX_RETRIES"`
	BackoffFactor float64 `yaml:"backoff_factor" json:"backoff_factor" default:"2.0" env:"RECONCILE_BACKOFF_FACTOR"`
	MaxBackoffMs  int     `yaml:"max_backoff_ms" json:"max_backoff_ms" default:"30000" env:"RECONCILE_MAX_BACKOFF_MS"`
	Follow        bool    `yaml:"follow" json:"follow" default:"false" env:"RECONCILE_FOLLOW"`
}

// PlannerConfig mirrors planner.Options' tunables.
type PlannerConfig struct {
	MaxDepth   int `yaml:"max_depth" json:"max_depth" default:"64" env:"RECONCILE_MAX_DEPTH"`
	TimeoutMs  int `yaml:"timeout_ms" json:"timeout_ms" default:"5000" env:"RECONCILE_TIMEOUT_MS"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" default:"info" env:"RECONCILE_LOG_LEVEL"`
	EnableColor bool   `yaml:"enable_color" json:"enable_color" default:"true" env:"RECONCILE_LOG_COLOR"`
}

// DefaultConfig returns the built-in defaults. The Agent section matches
// agent.DefaultOptions; the Planner section (MaxDepth 64, 5s timeout) is
// tighter than planner.DefaultOptions (256, 30s).
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			MinWaitMs:     200,
			MaxRetries:    5,
			BackoffFactor: 2.0,
			MaxBackoffMs:  30_000,
			Follow:        false,
		},
		Planner: PlannerConfig{
			MaxDepth:  64,
			TimeoutMs: 5_000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			EnableColor: true,
		},
		Version: "1.0",
		Profile: "default",
	}
}

// Load reads and parses a YAML config file, then applies environment
// overrides on top of it (teacher's Manager.Load, trimmed: no hot-reload
// watcher, no profile directory lookup — out of spec.md scope).
func Load(path string) (*Config, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := NewLoader().LoadFromEnvironment(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}
