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

// MariaDBEngine drives mariadb-backup, mariadb-dump, and mariadb-admin.
type MariaDBEngine struct {
	cfg    *Config
	runner execx.Runner
}

// NewMariaDBEngine returns an Engine backed by the MariaDB client tools.
func NewMariaDBEngine(cfg *Config, runner execx.Runner) *MariaDBEngine {
	return &MariaDBEngine{cfg: cfg, runner: runner}
}

// Name implements Engine.
func (e *MariaDBEngine) Name() string { return EngineMariaDB }

// SupportsIncremental implements Engine.
func (e *MariaDBEngine) SupportsIncremental() bool { return true }

// ProcessNames implements Engine.
func (e *MariaDBEngine) ProcessNames() []string {
	return []string{"mariadbd", "mysqld"}
}

// connArgs returns the shared connection arguments. The password travels via
// MYSQL_PWD so it never shows up in the process table.
func (e *MariaDBEngine) connArgs() []string {
	return []string{
		fmt.Sprintf("--host=%s", e.cfg.Host),
		fmt.Sprintf("--port=%d", e.cfg.Port),
		fmt.Sprintf("--user=%s", e.cfg.User),
	}
}

func (e *MariaDBEngine) env() []string {
	if e.cfg.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + e.cfg.Password}
}

// Ping implements Engine.
func (e *MariaDBEngine) Ping(ctx context.Context) error {
	return e.runner.Run(ctx, execx.Cmd{
		Name: "mariadb-admin",
		Args: append(e.connArgs(), "ping"),
		Env:  e.env(),
	})
}

// Backup implements Engine.
func (e *MariaDBEngine) Backup(ctx context.Context, targetDir, baseDir string) error {
	args := append(e.connArgs(), "--backup", "--target-dir="+targetDir)
	if baseDir != "" {
		args = append(args, "--incremental-basedir="+baseDir)
	}
	return e.runner.Run(ctx, execx.Cmd{
		Name: "mariadb-backup",
		Args: args,
		Env:  e.env(),
	})
}

// Verify implements Engine. The redo log is applied in apply-log-only mode,
// which leaves the artifact able to accept later incrementals.
func (e *MariaDBEngine) Verify(ctx context.Context, dir string) error {
	return e.runner.Run(ctx, execx.Cmd{
		Name: "mariadb-backup",
		Args: []string{"--prepare", "--apply-log-only", "--target-dir=" + dir},
	})
}

// Prepare implements Engine.
func (e *MariaDBEngine) Prepare(ctx context.Context, fullDir string) error {
	return e.runner.Run(ctx, execx.Cmd{
		Name: "mariadb-backup",
		Args: []string{"--prepare", "--target-dir=" + fullDir},
	})
}

// ApplyIncremental implements Engine.
func (e *MariaDBEngine) ApplyIncremental(ctx context.Context, fullDir, incrDir string) error {
	return e.runner.Run(ctx, execx.Cmd{
		Name: "mariadb-backup",
		Args: []string{"--prepare", "--target-dir=" + fullDir, "--incremental-dir=" + incrDir},
	})
}

// CopyBack implements Engine.
func (e *MariaDBEngine) CopyBack(ctx context.Context, backupDir, dataDir string) error {
	return e.runner.Run(ctx, execx.Cmd{
		Name: "mariadb-backup",
		Args: []string{"--copy-back", "--target-dir=" + backupDir, "--datadir=" + dataDir},
	})
}

// Dump implements Engine.
func (e *MariaDBEngine) Dump(ctx context.Context, database string, out io.Writer) error {
	args := append(e.connArgs(), "--single-transaction", "--routines", "--triggers", database)
	return e.runner.Run(ctx, execx.Cmd{
		Name:   "mariadb-dump",
		Args:   args,
		Env:    e.env(),
		Stdout: out,
	})
}
