// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ipukeone/rogmar/internal/errdefs"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Backup.Engine != "mariadb" {
		t.Errorf("engine = %q, want mariadb", cfg.Backup.Engine)
	}
	if cfg.Backup.Schedule.Interval != 24*time.Hour {
		t.Errorf("schedule interval = %s, want 24h", cfg.Backup.Schedule.Interval)
	}
	if cfg.Assembler.Descriptor != "rogmar.yml" {
		t.Errorf("descriptor = %q", cfg.Assembler.Descriptor)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ROGMAR_LOG_LEVEL", "debug")
	t.Setenv("DB_ENGINE", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("BACKUP_INTERVAL", "6h")
	t.Setenv("BACKUP_COMPRESSION_ALGORITHM", "zstd")
	t.Setenv("BACKUP_COMPRESSION_LEVEL", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Backup.Engine != "postgres" {
		t.Errorf("engine = %q, want postgres", cfg.Backup.Engine)
	}
	if cfg.Backup.Port != 5432 {
		t.Errorf("port = %d, want 5432", cfg.Backup.Port)
	}
	if cfg.Backup.Schedule.Interval != 6*time.Hour {
		t.Errorf("schedule interval = %s, want 6h", cfg.Backup.Schedule.Interval)
	}
	if cfg.Backup.Compression.Algorithm != "zstd" {
		t.Errorf("compression algorithm = %q", cfg.Backup.Compression.Algorithm)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: warn
  format: console
backup:
  engine: postgres
  port: 5432
  data_dir: /var/lib/postgresql/data
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Backup.DataDir != "/var/lib/postgresql/data" {
		t.Errorf("data dir = %q", cfg.Backup.DataDir)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Listen != "0.0.0.0:8337" {
		t.Errorf("listen = %q, want default", cfg.Server.Listen)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("ROGMAR_LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("logging level = %q, environment must win over the file", cfg.Logging.Level)
	}
}

func TestUnknownEnvVarsIgnored(t *testing.T) {
	t.Setenv("ROGMAR_NO_SUCH_SETTING", "boom")

	if _, err := Load(); err != nil {
		t.Fatalf("unmapped environment variables must be ignored: %v", err)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	t.Setenv("DB_ENGINE", "oracle")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errdefs.IsConfig(err) {
		t.Errorf("error = %v, want config error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"empty listen", func(c *Config) { c.Server.Listen = "" }, true},
		{"short timeout", func(c *Config) { c.Server.Timeout = time.Millisecond }, true},
		{"empty descriptor", func(c *Config) { c.Assembler.Descriptor = "" }, true},
		{"negative rotation", func(c *Config) { c.Assembler.RotationCount = -1 }, true},
		{"bad backup section", func(c *Config) { c.Backup.Port = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
