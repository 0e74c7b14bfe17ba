// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ipukeone/rogmar/internal/errdefs"
	"github.com/ipukeone/rogmar/internal/execx"
)

// PostgresEngine drives pg_basebackup, pg_dump, and pg_isready. PostgreSQL
// base backups are self-consistent, so Verify, Prepare, and ApplyIncremental
// have little to do; incrementals are unsupported and the manager falls back
// to full backups.
type PostgresEngine struct {
	cfg    *Config
	runner execx.Runner
}

// NewPostgresEngine returns an Engine backed by the PostgreSQL client tools.
func NewPostgresEngine(cfg *Config, runner execx.Runner) *PostgresEngine {
	return &PostgresEngine{cfg: cfg, runner: runner}
}

// Name implements Engine.
func (e *PostgresEngine) Name() string { return EnginePostgres }

// SupportsIncremental implements Engine.
func (e *PostgresEngine) SupportsIncremental() bool { return false }

// ProcessNames implements Engine.
func (e *PostgresEngine) ProcessNames() []string {
	return []string{"postgres"}
}

func (e *PostgresEngine) connArgs() []string {
	return []string{
		"--host=" + e.cfg.Host,
		fmt.Sprintf("--port=%d", e.cfg.Port),
		"--username=" + e.cfg.User,
	}
}

func (e *PostgresEngine) env() []string {
	if e.cfg.Password == "" {
		return nil
	}
	return []string{"PGPASSWORD=" + e.cfg.Password}
}

// Ping implements Engine.
func (e *PostgresEngine) Ping(ctx context.Context) error {
	return e.runner.Run(ctx, execx.Cmd{
		Name: "pg_isready",
		Args: e.connArgs(),
		Env:  e.env(),
	})
}

// Backup implements Engine.
func (e *PostgresEngine) Backup(ctx context.Context, targetDir, baseDir string) error {
	if baseDir != "" {
		return errdefs.ToolFailure("postgres engine cannot produce incremental backups")
	}
	args := append(e.connArgs(),
		"--pgdata="+targetDir,
		"--format=plain",
		"--wal-method=stream",
		"--checkpoint=fast",
		"--progress",
	)
	return e.runner.Run(ctx, execx.Cmd{
		Name: "pg_basebackup",
		Args: args,
		Env:  e.env(),
	})
}

// Verify implements Engine. pg_basebackup writes a complete, consistent
// cluster copy; verification reduces to the backup label being present.
func (e *PostgresEngine) Verify(_ context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "backup_label")); err != nil {
		return errdefs.WrapToolFailure(err, "base backup at %s has no backup_label", dir)
	}
	return nil
}

// Prepare implements Engine. Nothing to do for plain-format base backups.
func (e *PostgresEngine) Prepare(_ context.Context, _ string) error {
	return nil
}

// ApplyIncremental implements Engine.
func (e *PostgresEngine) ApplyIncremental(_ context.Context, _, _ string) error {
	return errdefs.ToolFailure("postgres engine cannot apply incremental backups")
}

// CopyBack implements Engine. The prepared directory is copied file by file
// because PostgreSQL ships no copy-back tool.
func (e *PostgresEngine) CopyBack(_ context.Context, backupDir, dataDir string) error {
	err := filepath.WalkDir(backupDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(backupDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(dataDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0o700)
		}
		return copyRegularFile(path, dest)
	})
	if err != nil {
		return errdefs.WrapToolFailure(err, "copy-back from %s to %s failed", backupDir, dataDir)
	}
	return nil
}

// Dump implements Engine.
func (e *PostgresEngine) Dump(ctx context.Context, database string, out io.Writer) error {
	args := append(e.connArgs(), "--no-password", database)
	return e.runner.Run(ctx, execx.Cmd{
		Name:   "pg_dump",
		Args:   args,
		Env:    e.env(),
		Stdout: out,
	})
}

// copyRegularFile copies one file preserving its mode.
func copyRegularFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src) //nolint:gosec // G304: paths come from internal backup storage
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort cleanup

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()) //nolint:gosec // G304: paths come from internal backup storage
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck // Best effort cleanup on error
		return err
	}
	return out.Close()
}
