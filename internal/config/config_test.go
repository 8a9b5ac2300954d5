// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	cfg "github.com/va2ops/bbsblog/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Point the user config dir at an empty temp dir so no real file leaks in.
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("expected sqlite default, got %q", got.Database.Type)
	}
	if got.PageSize != 10 || got.LineWidth != 79 || got.TruncateAt != 2000 {
		t.Errorf("unexpected defaults: page=%d width=%d budget=%d", got.PageSize, got.LineWidth, got.TruncateAt)
	}
	if got.AdminCallsign != "" || got.DefaultRole != "reader" {
		t.Errorf("unexpected defaults: admin=%q role=%q", got.AdminCallsign, got.DefaultRole)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadConfigReadsExplicitFile(t *testing.T) {
	tmp := t.TempDir()
	yaml := "database:\n  type: postgres\n  dsn: postgresql://user@/blog\nlanguage: fr\npage_size: 5\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults, &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Database.Type != "postgres" {
		t.Errorf("expected postgres, got %q", got.Database.Type)
	}
	if got.Language != "fr" {
		t.Errorf("expected fr, got %q", got.Language)
	}
	if got.PageSize != 5 {
		t.Errorf("expected page size 5, got %d", got.PageSize)
	}
	// Values the file omits fall back to defaults.
	if got.LineWidth != 79 {
		t.Errorf("expected default width, got %d", got.LineWidth)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	os.Setenv("BBSBLOG_DATABASE_TYPE", "mysql")
	defer os.Unsetenv("XDG_CONFIG_HOME")
	defer os.Unsetenv("BBSBLOG_DATABASE_TYPE")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Database.Type != "mysql" {
		t.Errorf("env override ignored, got %q", got.Database.Type)
	}
}

func TestWriteConfigFileCreatesFile(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	var c cfg.Config
	c.Database.Type = "sqlite"
	c.Database.DSN = "blog.db"
	c.Database.TimeoutSeconds = 10
	c.AdminCallsign = "VA2OPS"
	c.DefaultRole = "reader"
	c.PageSize = 10
	c.LineWidth = 79
	c.TruncateAt = 2000
	c.Language = "en"

	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}

	path, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}

	// The written file must load back with the same values.
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.AdminCallsign != "VA2OPS" {
		t.Errorf("expected admin callsign to round-trip, got %q", got.AdminCallsign)
	}
	if got.Database.DSN != "blog.db" {
		t.Errorf("expected DSN to round-trip, got %q", got.Database.DSN)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() cfg.Config {
		var c cfg.Config
		c.Database.Type = "sqlite"
		c.Database.DSN = "blog.db"
		c.DefaultRole = "reader"
		c.PageSize = 10
		c.LineWidth = 79
		c.TruncateAt = 2000
		return c
	}

	c := base()
	if err := c.Validate(); err != nil {
		t.Fatalf("base config must validate: %v", err)
	}

	c = base()
	c.Database.Type = "oracle"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unsupported database type")
	}

	c = base()
	c.Database.DSN = ""
	if err := c.Validate(); err == nil {
		t.Error("expected error for empty DSN")
	}

	c = base()
	c.DefaultRole = "wizard"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown role")
	}

	c = base()
	c.PageSize = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for zero page size")
	}
}
