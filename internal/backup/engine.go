// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"context"
	"fmt"
	"io"

	"github.com/ipukeone/rogmar/internal/execx"
)

// Engine names accepted in configuration.
const (
	EngineMariaDB  = "mariadb"
	EnginePostgres = "postgres"
)

// Engine wraps one database's external backup tooling. The tools are opaque
// command-line programs; the manager interprets nothing but success or
// failure plus the artifact directories they produce.
type Engine interface {
	// Name returns the engine name as used in configuration.
	Name() string

	// SupportsIncremental reports whether the engine can produce
	// incremental artifacts. When false the manager falls back to full
	// backups with a warning.
	SupportsIncremental() bool

	// ProcessNames returns the server process names scanned for during
	// restore preconditions.
	ProcessNames() []string

	// Ping checks database reachability. Backups require it to succeed,
	// restores require it to fail.
	Ping(ctx context.Context) error

	// Backup writes a backup into targetDir. An empty baseDir means a
	// full backup; otherwise a delta against baseDir.
	Backup(ctx context.Context, targetDir, baseDir string) error

	// Verify checks a freshly written artifact without mutating it in a
	// way that prevents later incrementals.
	Verify(ctx context.Context, dir string) error

	// Prepare makes a full artifact consistent ahead of copy-back.
	Prepare(ctx context.Context, fullDir string) error

	// ApplyIncremental folds one incremental artifact into the prepared
	// full artifact.
	ApplyIncremental(ctx context.Context, fullDir, incrDir string) error

	// CopyBack moves the prepared artifact into the data directory.
	CopyBack(ctx context.Context, backupDir, dataDir string) error

	// Dump streams a logical dump of one database to out.
	Dump(ctx context.Context, database string, out io.Writer) error
}

// NewEngine constructs the engine named in cfg.
func NewEngine(cfg *Config, runner execx.Runner) (Engine, error) {
	switch cfg.Engine {
	case EngineMariaDB:
		return NewMariaDBEngine(cfg, runner), nil
	case EnginePostgres:
		return NewPostgresEngine(cfg, runner), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", cfg.Engine)
	}
}
