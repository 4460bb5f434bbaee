// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for shipped applications.
	Production Environment = "production"
)

// Config is the configuration for one application embedding Glean.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// DataPath is the application's data directory. The metric store
	// and the first-run sentinel live under it.
	DataPath string `yaml:"data_path"`

	// UploadEnabled is the initial value of the upload flag.
	UploadEnabled bool `yaml:"upload_enabled"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Storage configures the metric store.
	Storage StorageConfig `yaml:"storage"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// StorageConfig configures the metric store.
type StorageConfig struct {
	// PoolSize is the number of SQLite connections.
	// Default: 4
	PoolSize int `yaml:"pool_size"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Nil pointers leave the base value in place.
type ConfigOverrides struct {
	DataPath      string         `yaml:"data_path,omitempty"`
	UploadEnabled *bool          `yaml:"upload_enabled,omitempty"`
	LogLevel      string         `yaml:"log_level,omitempty"`
	Storage       *StorageConfig `yaml:"storage,omitempty"`
}

// Default returns the default configuration, used as the base that the
// config file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment:   Development,
		DataPath:      filepath.Join(homeDir, ".local", "share", "glean"),
		UploadEnabled: true,
		LogLevel:      "info",
		Storage: StorageConfig{
			PoolSize: 4,
		},
	}
}

// Load loads configuration from the file named by GLEAN_CONFIG. It fails
// if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv("GLEAN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("GLEAN_CONFIG environment variable not set; " +
			"set it to the path of your glean.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies the
// matching environment section and expands variables in paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{LogLevel: "warn"}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.DataPath != "" {
		c.DataPath = overrides.DataPath
	}
	if overrides.UploadEnabled != nil {
		c.UploadEnabled = *overrides.UploadEnabled
	}
	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}
	if overrides.Storage != nil && overrides.Storage.PoolSize != 0 {
		c.Storage.PoolSize = overrides.Storage.PoolSize
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.DataPath = expandVars(c.DataPath, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.DataPath == "" {
		errs = append(errs, fmt.Errorf("data_path is required"))
	}

	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}

	if c.Storage.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("storage.pool_size must be at least 1, got %d", c.Storage.PoolSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel returns LogLevel as a slog.Level. Unrecognized values map
// to Info; Validate reports them.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
