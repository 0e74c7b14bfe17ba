// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all backup-related configuration.
type Config struct {
	// Enable backup functionality
	Enabled bool

	// Directory holding the full/, incremental/, and dumps/ subtrees
	BackupDir string

	// Directory scanned for a restore chain
	RestoreDir string

	// Database data directory, the copy-back target
	DataDir string

	// Database engine name: mariadb or postgres
	Engine string

	// Database connection settings
	Host     string
	Port     int
	User     string
	Password string

	// Minimum free disk space in the backup directory, in megabytes
	MinFreeDiskMB uint64

	// Owner applied to restored data files
	OwnerUID int
	OwnerGID int

	// Days an artifact is kept before pruning (0 disables pruning)
	RetentionDays int

	// Schedule configuration for the daemon
	Schedule ScheduleConfig

	// Compression settings for dump artifacts
	Compression CompressionConfig
}

// ScheduleConfig defines when automatic backups run in daemon mode.
type ScheduleConfig struct {
	// Enable automatic scheduled backups
	Enabled bool

	// Backup interval (e.g. 24h for daily)
	Interval time.Duration

	// Time of day to run backups (hour in 24h format, 0-23).
	// Only used if Interval >= 24h.
	PreferredHour int

	// Artifact kind to create on schedule: full or incremental
	Kind string
}

// CompressionConfig defines compression settings for dump artifacts.
type CompressionConfig struct {
	// Compression algorithm (gzip, zstd)
	Algorithm string

	// Compression level. gzip accepts 1-9, zstd 1-4.
	Level int
}

// DefaultConfig returns the backup defaults applied before file and
// environment overrides.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		BackupDir:     "/data/backups",
		RestoreDir:    "/data/restore",
		DataDir:       "/var/lib/mysql",
		Engine:        EngineMariaDB,
		Host:          "127.0.0.1",
		Port:          3306,
		User:          "root",
		MinFreeDiskMB: 1024,
		RetentionDays: 14,
		Schedule: ScheduleConfig{
			Enabled:       false,
			Interval:      24 * time.Hour,
			PreferredHour: 2,
			Kind:          "full",
		},
		Compression: CompressionConfig{
			Algorithm: "gzip",
			Level:     6,
		},
	}
}

// Validate checks that the configuration is usable.
//
//nolint:gocyclo // Validation function with many sequential checks
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.BackupDir == "" {
		return fmt.Errorf("backup directory is required when backups are enabled")
	}
	if !filepath.IsAbs(c.BackupDir) {
		return fmt.Errorf("backup directory must be an absolute path, got: %s", c.BackupDir)
	}
	if c.RestoreDir != "" && !filepath.IsAbs(c.RestoreDir) {
		return fmt.Errorf("restore directory must be an absolute path, got: %s", c.RestoreDir)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required when backups are enabled")
	}

	if c.Engine != EngineMariaDB && c.Engine != EnginePostgres {
		return fmt.Errorf("engine must be one of: %s, %s; got: %s", EngineMariaDB, EnginePostgres, c.Engine)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", c.Port)
	}

	if c.RetentionDays < 0 {
		return fmt.Errorf("retention days must not be negative, got: %d", c.RetentionDays)
	}

	if c.Schedule.Enabled {
		if c.Schedule.Interval < time.Hour {
			return fmt.Errorf("schedule interval must be at least 1 hour, got: %s", c.Schedule.Interval)
		}
		if c.Schedule.PreferredHour < 0 || c.Schedule.PreferredHour > 23 {
			return fmt.Errorf("schedule preferred hour must be between 0 and 23, got: %d", c.Schedule.PreferredHour)
		}
		if c.Schedule.Kind != "full" && c.Schedule.Kind != "incremental" {
			return fmt.Errorf("schedule kind must be one of: full, incremental; got: %s", c.Schedule.Kind)
		}
	}

	switch c.Compression.Algorithm {
	case "gzip":
		if c.Compression.Level < 1 || c.Compression.Level > 9 {
			return fmt.Errorf("gzip compression level must be between 1 and 9, got: %d", c.Compression.Level)
		}
	case "zstd":
		if c.Compression.Level < 1 || c.Compression.Level > 4 {
			return fmt.Errorf("zstd compression level must be between 1 and 4, got: %d", c.Compression.Level)
		}
	default:
		return fmt.Errorf("compression algorithm must be one of: gzip, zstd; got: %s", c.Compression.Algorithm)
	}

	return nil
}

// EnsureDirs creates the backup directory tree if it does not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.BackupDir,
		filepath.Join(c.BackupDir, "full"),
		filepath.Join(c.BackupDir, "incremental"),
		filepath.Join(c.BackupDir, "dumps"),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create backup directory %s: %w", dir, err)
		}
	}
	return nil
}
