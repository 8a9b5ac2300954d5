// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the engine configuration from YAML files,
// environment variables and CLI flags, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/va2ops/bbsblog/internal/model"
	"github.com/va2ops/bbsblog/internal/rf"
)

// Config is the full engine configuration.
type Config struct {
	Database struct {
		// Type is one of sqlite, postgres, mysql.
		Type string `mapstructure:"type" yaml:"type"`
		DSN  string `mapstructure:"dsn" yaml:"dsn"`
		// TimeoutSeconds bounds every store call.
		TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	} `mapstructure:"database" yaml:"database"`

	// AdminCallsign is the bootstrap admin seeded by setup.
	AdminCallsign string `mapstructure:"admin_callsign" yaml:"admin_callsign"`
	// DefaultRole is handed to users on first contact.
	DefaultRole string `mapstructure:"default_role" yaml:"default_role"`

	PageSize   int `mapstructure:"page_size" yaml:"page_size"`
	LineWidth  int `mapstructure:"line_width" yaml:"line_width"`
	TruncateAt int `mapstructure:"truncate_at" yaml:"truncate_at"`

	Language string `mapstructure:"language" yaml:"language"`
	Debug    bool   `mapstructure:"debug" yaml:"debug"`
}

// Defaults is the baseline configuration before files, env and flags.
var Defaults = map[string]any{
	"database.type":            "sqlite",
	"database.dsn":             "./bbsblog.db",
	"database.timeout_seconds": 10,
	"admin_callsign":           "",
	"default_role":             string(model.RoleReader),
	"page_size":                10,
	"line_width":               rf.DefaultWidth,
	"truncate_at":              rf.DefaultBudget,
	"language":                 "en",
	"debug":                    false,
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Bbsblog")
		default:
			configDir = "/etc/bbsblog"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "bbsblog")
	}

	return filepath.Join(configDir, "bbsblog.yaml"), nil
}

// LoadConfig resolves the configuration for a command invocation. An
// explicit config file path (from --config) has the highest file
// precedence; environment variables use the BBSBLOG_ prefix with dots
// mapped to underscores.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFilePath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("bbsblog")
	v.SetConfigType("yaml")

	if configFilePath != nil && *configFilePath != "" {
		v.SetConfigFile(*configFilePath)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("bbsblog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// Validate checks the resolved configuration for values the engine
// cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN must not be empty")
	}
	if _, ok := model.ParseRole(c.DefaultRole); !ok {
		return fmt.Errorf("unknown default role %q", c.DefaultRole)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.LineWidth <= 0 {
		return fmt.Errorf("line width must be positive")
	}
	if c.TruncateAt <= 0 {
		return fmt.Errorf("truncation budget must be positive")
	}
	return nil
}

// WriteConfigFile persists the configuration as YAML to the user or
// system location.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	return os.WriteFile(path, data, 0600)
}
