// Package config provides configuration management for workspace-fs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable name, e.g. WSFS_LOG_LEVEL
const EnvPrefix = "WSFS"

// DisabledPath turns off persistence for path-valued settings that support it
const DisabledPath = "-"

// Config holds all application configuration
type Config struct {
	// WorkspaceRoot is the initial workspace root. Empty means the process working directory
	WorkspaceRoot string `envconfig:"WORKSPACE_ROOT"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEV" default:"false"`

	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint     string `envconfig:"OTLP_ENDPOINT" default:"localhost:4318"`

	// RecentsFile is where the recent files list is persisted. Empty means the default location, DisabledPath means
	// memory only
	RecentsFile string `envconfig:"RECENTS_FILE"`
	MaxRecents  int    `envconfig:"MAX_RECENTS" default:"10"`
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if c.MaxRecents <= 0 {
		return fmt.Errorf("%s_MAX_RECENTS must be positive, got %d", EnvPrefix, c.MaxRecents)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level '%s'", c.LogLevel)
	}
	return nil
}

// RecentsPath returns where the recents list should be persisted, or "" if it should stay in memory
func (c Config) RecentsPath() (string, error) {
	switch c.RecentsFile {
	case DisabledPath:
		return "", nil
	case "":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate user config directory: %w", err)
		}
		return filepath.Join(dir, "workspace-fs", "recents.json"), nil
	default:
		return c.RecentsFile, nil
	}
}
