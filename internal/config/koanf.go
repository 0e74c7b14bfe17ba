// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ipukeone/rogmar/internal/backup"
	"github.com/ipukeone/rogmar/internal/errdefs"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"rogmar.yaml",
	"rogmar.yml",
	"/etc/rogmar/config.yaml",
	"/etc/rogmar/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "ROGMAR_CONFIG"

// defaultConfig returns the built-in defaults, applied before file and
// environment overrides.
func defaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Listen:  "0.0.0.0:8337",
			Timeout: 30 * time.Second,
		},
		Assembler: AssemblerConfig{
			RemoteURL:     "",
			Ref:           "main",
			Subpath:       "templates",
			Descriptor:    "rogmar.yml",
			RotationCount: 3,
		},
	}

	b := backup.DefaultConfig()
	cfg.Backup.Enabled = b.Enabled
	cfg.Backup.BackupDir = b.BackupDir
	cfg.Backup.RestoreDir = b.RestoreDir
	cfg.Backup.DataDir = b.DataDir
	cfg.Backup.Engine = b.Engine
	cfg.Backup.Host = b.Host
	cfg.Backup.Port = b.Port
	cfg.Backup.User = b.User
	cfg.Backup.MinFreeDiskMB = b.MinFreeDiskMB
	cfg.Backup.RetentionDays = b.RetentionDays
	cfg.Backup.Schedule.Enabled = b.Schedule.Enabled
	cfg.Backup.Schedule.Interval = b.Schedule.Interval
	cfg.Backup.Schedule.PreferredHour = b.Schedule.PreferredHour
	cfg.Backup.Schedule.Kind = b.Schedule.Kind
	cfg.Backup.Compression.Algorithm = b.Compression.Algorithm
	cfg.Backup.Compression.Level = b.Compression.Level

	return cfg
}

// Load loads configuration with layered sources:
//  1. Defaults: built-in struct defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, errdefs.WrapConfig(err, "failed to load defaults")
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, errdefs.WrapConfig(err, "failed to load config file %s", configPath)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errdefs.WrapConfig(err, "failed to load environment variables")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errdefs.WrapConfig(err, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errdefs.WrapConfig(err, "configuration validation failed")
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unknown variables are ignored so unrelated environment noise cannot leak
// into the configuration.
var envMappings = map[string]string{
	// Logging
	"rogmar_log_level":  "logging.level",
	"rogmar_log_format": "logging.format",

	// Daemon HTTP listener
	"rogmar_listen":       "server.listen",
	"rogmar_http_timeout": "server.timeout",

	// Template assembly
	"rogmar_template_url":     "assembler.remote_url",
	"rogmar_template_ref":     "assembler.ref",
	"rogmar_template_subpath": "assembler.subpath",
	"rogmar_descriptor":       "assembler.descriptor",
	"rogmar_backup_rotation":  "assembler.rotation_count",

	// Backup
	"backup_enabled":               "backup.enabled",
	"backup_dir":                   "backup.backup_dir",
	"restore_dir":                  "backup.restore_dir",
	"data_dir":                     "backup.data_dir",
	"db_engine":                    "backup.engine",
	"db_host":                      "backup.host",
	"db_port":                      "backup.port",
	"db_user":                      "backup.user",
	"db_password":                  "backup.password",
	"backup_min_free_disk_mb":      "backup.min_free_disk_mb",
	"backup_owner_uid":             "backup.owner_uid",
	"backup_owner_gid":             "backup.owner_gid",
	"backup_retention_days":        "backup.retention_days",
	"backup_schedule_enabled":      "backup.schedule.enabled",
	"backup_interval":              "backup.schedule.interval",
	"backup_preferred_hour":        "backup.schedule.preferred_hour",
	"backup_schedule_kind":         "backup.schedule.kind",
	"backup_compression_algorithm": "backup.compression.algorithm",
	"backup_compression_level":     "backup.compression.level",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Variables without a mapping are dropped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
