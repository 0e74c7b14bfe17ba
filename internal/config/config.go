// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package config loads and validates application configuration from three
// layered sources: struct defaults, an optional YAML file, and environment
// variables. Precedence is ENV > file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/ipukeone/rogmar/internal/backup"
)

// Config is the root configuration.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Server    ServerConfig    `koanf:"server"`
	Assembler AssemblerConfig `koanf:"assembler"`
	Backup    BackupConfig    `koanf:"backup"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `koanf:"level"`

	// Format: json or console
	Format string `koanf:"format"`
}

// ServerConfig controls the daemon's HTTP listener.
type ServerConfig struct {
	// Listen address, host:port
	Listen string `koanf:"listen"`

	// Timeout for HTTP request handling
	Timeout time.Duration `koanf:"timeout"`
}

// AssemblerConfig controls template assembly.
type AssemblerConfig struct {
	// RemoteURL of the template repository
	RemoteURL string `koanf:"remote_url"`

	// Ref (branch or tag) to fetch
	Ref string `koanf:"ref"`

	// Subpath inside the repository holding the service templates
	Subpath string `koanf:"subpath"`

	// Descriptor is the project's primary descriptor file name
	Descriptor string `koanf:"descriptor"`

	// RotationCount of kept descriptor/env backups before each rewrite
	RotationCount int `koanf:"rotation_count"`
}

// BackupConfig mirrors the backup package configuration with koanf tags.
type BackupConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BackupDir     string `koanf:"backup_dir"`
	RestoreDir    string `koanf:"restore_dir"`
	DataDir       string `koanf:"data_dir"`
	Engine        string `koanf:"engine"`
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	User          string `koanf:"user"`
	Password      string `koanf:"password"`
	MinFreeDiskMB uint64 `koanf:"min_free_disk_mb"`
	OwnerUID      int    `koanf:"owner_uid"`
	OwnerGID      int    `koanf:"owner_gid"`
	RetentionDays int    `koanf:"retention_days"`

	Schedule struct {
		Enabled       bool          `koanf:"enabled"`
		Interval      time.Duration `koanf:"interval"`
		PreferredHour int           `koanf:"preferred_hour"`
		Kind          string        `koanf:"kind"`
	} `koanf:"schedule"`

	Compression struct {
		Algorithm string `koanf:"algorithm"`
		Level     int    `koanf:"level"`
	} `koanf:"compression"`
}

// BackupConfig converts the backup section into the backup package's type.
func (c *Config) BackupConfig() backup.Config {
	b := c.Backup
	return backup.Config{
		Enabled:       b.Enabled,
		BackupDir:     b.BackupDir,
		RestoreDir:    b.RestoreDir,
		DataDir:       b.DataDir,
		Engine:        b.Engine,
		Host:          b.Host,
		Port:          b.Port,
		User:          b.User,
		Password:      b.Password,
		MinFreeDiskMB: b.MinFreeDiskMB,
		OwnerUID:      b.OwnerUID,
		OwnerGID:      b.OwnerGID,
		RetentionDays: b.RetentionDays,
		Schedule: backup.ScheduleConfig{
			Enabled:       b.Schedule.Enabled,
			Interval:      b.Schedule.Interval,
			PreferredHour: b.Schedule.PreferredHour,
			Kind:          b.Schedule.Kind,
		},
		Compression: backup.CompressionConfig{
			Algorithm: b.Compression.Algorithm,
			Level:     b.Compression.Level,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be one of: debug, info, warn, error; got: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging format must be one of: json, console; got: %s", c.Logging.Format)
	}

	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1s, got: %s", c.Server.Timeout)
	}

	if c.Assembler.Descriptor == "" {
		return fmt.Errorf("assembler descriptor file name is required")
	}
	if c.Assembler.RotationCount < 0 {
		return fmt.Errorf("assembler rotation count must not be negative, got: %d", c.Assembler.RotationCount)
	}

	bc := c.BackupConfig()
	if err := bc.Validate(); err != nil {
		return fmt.Errorf("backup configuration: %w", err)
	}

	return nil
}
