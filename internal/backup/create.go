// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipukeone/rogmar/internal/artifact"
	"github.com/ipukeone/rogmar/internal/errdefs"
	"github.com/ipukeone/rogmar/internal/lockfile"
	"github.com/ipukeone/rogmar/internal/logging"
	"github.com/ipukeone/rogmar/internal/metrics"
)

// CreateFullBackup creates a full engine-native backup.
func (m *Manager) CreateFullBackup(ctx context.Context) (*Record, error) {
	return m.createFull(ctx, TriggerManual)
}

// CreateIncrementalBackup creates an incremental backup on top of the most
// recent full. With no full present, or an engine that cannot produce
// deltas, it creates a full backup instead and says so.
func (m *Manager) CreateIncrementalBackup(ctx context.Context) (*Record, error) {
	return m.createIncremental(ctx, TriggerManual)
}

// CreateDumpBackup creates a compressed logical dump of one database.
func (m *Manager) CreateDumpBackup(ctx context.Context, database string) (*Record, error) {
	return m.createDump(ctx, database, TriggerManual)
}

// CreateScheduledBackup runs the configured scheduled backup kind. Called by
// the daemon scheduler.
func (m *Manager) CreateScheduledBackup(ctx context.Context) (*Record, error) {
	if m.cfg.Schedule.Kind == "incremental" {
		return m.createIncremental(ctx, TriggerScheduled)
	}
	return m.createFull(ctx, TriggerScheduled)
}

func (m *Manager) createFull(ctx context.Context, trigger Trigger) (*Record, error) {
	rec := m.newRecord("backup", trigger)
	rec.Kind = string(artifact.KindFull)

	lock, acquired, err := m.acquireLock(rec)
	if err != nil || !acquired {
		return rec, err
	}
	defer lock.Release()

	if err := m.checkBackupPreconditions(ctx, rec); err != nil {
		return rec, err
	}

	entries, err := artifact.List(m.cfg.BackupDir)
	if err != nil {
		m.fail(rec, rec.Kind, err)
		return rec, err
	}

	err = m.runFull(ctx, rec, entries)
	return rec, err
}

// runFull performs the full-backup work after preconditions passed. It is
// shared with the incremental fallback path.
func (m *Manager) runFull(ctx context.Context, rec *Record, entries []artifact.Entry) error {
	rec.Kind = string(artifact.KindFull)
	id := artifact.NextFull(m.now(), entries)
	dir := filepath.Join(m.cfg.BackupDir, "full", id.DirName())
	rec.Artifact = id.String()
	rec.Path = dir

	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Msg("Creating full backup")

	if err := os.MkdirAll(dir, 0o750); err != nil {
		m.fail(rec, rec.Kind, err)
		return err
	}
	if err := m.engine.Backup(ctx, dir, ""); err != nil {
		m.removePartial(dir)
		m.fail(rec, rec.Kind, err)
		return err
	}

	if err := m.verifyArtifact(ctx, rec, dir); err != nil {
		return err
	}

	rec.SizeBytes = dirSize(dir)
	m.finishRecord(rec, StatusCompleted, nil)
	metrics.RecordBackup(rec.Kind, metrics.OutcomeSuccess, m.now().Sub(rec.StartedAt))
	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Int64("size_bytes", rec.SizeBytes).
		Msg("Full backup completed")
	return nil
}

func (m *Manager) createIncremental(ctx context.Context, trigger Trigger) (*Record, error) {
	rec := m.newRecord("backup", trigger)
	rec.Kind = string(artifact.KindIncremental)

	lock, acquired, err := m.acquireLock(rec)
	if err != nil || !acquired {
		return rec, err
	}
	defer lock.Release()

	if err := m.checkBackupPreconditions(ctx, rec); err != nil {
		return rec, err
	}

	entries, err := artifact.List(m.cfg.BackupDir)
	if err != nil {
		m.fail(rec, rec.Kind, err)
		return rec, err
	}

	base := artifact.LatestFull(entries)
	if base == nil {
		logging.Warn().
			Str("run_id", rec.RunID).
			Msg("No full backup exists, creating a full backup instead")
		err = m.runFull(ctx, rec, entries)
		return rec, err
	}
	if !m.engine.SupportsIncremental() {
		logging.Warn().
			Str("run_id", rec.RunID).
			Str("engine", m.engine.Name()).
			Msg("Engine cannot produce incremental backups, creating a full backup instead")
		err = m.runFull(ctx, rec, entries)
		return rec, err
	}

	delta := artifact.DeltaBase(*base, entries)
	id := artifact.NextIncremental(base.ID, entries)
	dir := filepath.Join(m.cfg.BackupDir, "incremental", id.DirName())
	rec.Artifact = id.String()
	rec.Base = delta.ID.String()
	rec.Path = dir

	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Str("base", rec.Base).
		Msg("Creating incremental backup")

	if err := os.MkdirAll(dir, 0o750); err != nil {
		m.fail(rec, rec.Kind, err)
		return rec, err
	}
	if err := m.engine.Backup(ctx, dir, delta.Path); err != nil {
		m.removePartial(dir)
		m.fail(rec, rec.Kind, err)
		return rec, err
	}

	if err := m.verifyArtifact(ctx, rec, dir); err != nil {
		return rec, err
	}

	rec.SizeBytes = dirSize(dir)
	m.finishRecord(rec, StatusCompleted, nil)
	metrics.RecordBackup(rec.Kind, metrics.OutcomeSuccess, m.now().Sub(rec.StartedAt))
	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Int64("size_bytes", rec.SizeBytes).
		Msg("Incremental backup completed")
	return rec, nil
}

func (m *Manager) createDump(ctx context.Context, database string, trigger Trigger) (*Record, error) {
	rec := m.newRecord("backup", trigger)
	rec.Kind = string(artifact.KindDump)
	rec.Database = database

	if database == "" {
		err := errdefs.Config("dump requires a database name")
		m.fail(rec, rec.Kind, err)
		return rec, err
	}

	lock, acquired, err := m.acquireLock(rec)
	if err != nil || !acquired {
		return rec, err
	}
	defer lock.Release()

	if err := m.checkBackupPreconditions(ctx, rec); err != nil {
		return rec, err
	}

	now := m.now()
	id := artifact.ID{
		Kind:  artifact.KindDump,
		Name:  database,
		Date:  artifact.DateOf(now),
		Stamp: artifact.StampOf(now),
	}
	path := filepath.Join(m.cfg.BackupDir, "dumps",
		id.String()+dumpExtension(m.cfg.Compression.Algorithm))
	rec.Artifact = id.String()
	rec.Path = path

	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Str("database", database).
		Msg("Creating dump backup")

	if err := m.writeDump(ctx, database, path); err != nil {
		m.removePartial(path)
		m.fail(rec, rec.Kind, err)
		return rec, err
	}

	if info, err := os.Stat(path); err == nil {
		rec.SizeBytes = info.Size()
	}
	m.finishRecord(rec, StatusCompleted, nil)
	metrics.RecordBackup(rec.Kind, metrics.OutcomeSuccess, m.now().Sub(rec.StartedAt))
	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Int64("size_bytes", rec.SizeBytes).
		Msg("Dump backup completed")
	return rec, nil
}

// writeDump streams the engine's logical dump through the configured
// compressor into path.
func (m *Manager) writeDump(ctx context.Context, database, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // G304: path is built from internal backup storage
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	zw, err := newCompressedWriter(f, m.cfg.Compression)
	if err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error
		return err
	}

	if err := m.engine.Dump(ctx, database, zw); err != nil {
		zw.Close() //nolint:errcheck // Best effort cleanup on error
		f.Close()  //nolint:errcheck // Best effort cleanup on error
		return err
	}

	if err := zw.Close(); err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("failed to finalize compressed dump: %w", err)
	}
	return f.Close()
}

// PruneOldArtifacts deletes artifacts older than the retention window. When
// no full backup remains inside the window it deletes nothing and warns,
// because pruning would leave no restorable baseline.
func (m *Manager) PruneOldArtifacts(ctx context.Context, retentionDays int) (*Record, error) {
	_ = ctx
	rec := m.newRecord("prune", TriggerManual)

	lock, acquired, err := m.acquireLock(rec)
	if err != nil || !acquired {
		return rec, err
	}
	defer lock.Release()

	entries, err := artifact.List(m.cfg.BackupDir)
	if err != nil {
		m.finishRecord(rec, StatusFailed, err)
		return rec, err
	}

	prunable, ok := artifact.SelectPrunable(entries, retentionDays, m.now())
	if !ok {
		logging.Warn().
			Str("run_id", rec.RunID).
			Int("retention_days", retentionDays).
			Msg("No full backup inside the retention window, refusing to prune")
		m.finishRecord(rec, StatusSkipped, nil)
		return rec, nil
	}

	deleted := 0
	for _, e := range prunable {
		if err := os.RemoveAll(e.Path); err != nil {
			logging.Warn().
				Str("run_id", rec.RunID).
				Str("artifact", e.ID.String()).
				Err(err).
				Msg("Failed to delete artifact")
			continue
		}
		deleted++
		logging.Info().
			Str("run_id", rec.RunID).
			Str("artifact", e.ID.String()).
			Msg("Pruned artifact")
	}

	m.finishRecord(rec, StatusCompleted, nil)
	logging.Info().
		Str("run_id", rec.RunID).
		Int("deleted", deleted).
		Int("candidates", len(prunable)).
		Msg("Prune completed")
	return rec, nil
}

// acquireLock takes the backup-root lock for rec's operation. A lock held by
// another invocation marks the record skipped and reports acquired=false
// with a nil error; concurrent runs are dropped, not queued.
func (m *Manager) acquireLock(rec *Record) (*lockfile.Lock, bool, error) {
	lock, err := lockfile.Acquire(m.lockPath())
	if err == nil {
		return lock, true, nil
	}

	if errors.Is(err, lockfile.ErrHeld) {
		holder := lockfile.Holder(m.lockPath())
		logging.Info().
			Str("run_id", rec.RunID).
			Str("operation", rec.Operation).
			Str("holder", holder).
			Msg("Another operation holds the lock, skipping this run")
		m.finishRecord(rec, StatusSkipped, nil)
		if rec.Operation == "backup" {
			metrics.RecordBackup(rec.Kind, metrics.OutcomeSkipped, 0)
		}
		return nil, false, nil
	}

	m.finishRecord(rec, StatusFailed, err)
	return nil, false, err
}

// checkBackupPreconditions verifies free disk space and database
// reachability before any artifact directory is created.
func (m *Manager) checkBackupPreconditions(ctx context.Context, rec *Record) error {
	free, err := m.diskFree(m.cfg.BackupDir)
	if err != nil {
		err = errdefs.WrapPrecondition(err, "cannot determine free disk space for %s", m.cfg.BackupDir)
		m.fail(rec, rec.Kind, err)
		return err
	}
	required := m.cfg.MinFreeDiskMB * 1024 * 1024
	if free < required {
		err = errdefs.Precondition("insufficient disk space in %s: %d MB free, %d MB required",
			m.cfg.BackupDir, free/(1024*1024), m.cfg.MinFreeDiskMB)
		m.fail(rec, rec.Kind, err)
		return err
	}

	if err := m.engine.Ping(ctx); err != nil {
		err = errdefs.WrapPrecondition(err, "database is not reachable")
		m.fail(rec, rec.Kind, err)
		return err
	}
	return nil
}

// verifyArtifact runs the engine's verification pass on a fresh artifact,
// removing it on failure.
func (m *Manager) verifyArtifact(ctx context.Context, rec *Record, dir string) error {
	rec.Status = StatusVerifying
	m.saveRecord(rec)
	logging.Debug().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Msg("Verifying backup artifact")

	if err := m.engine.Verify(ctx, dir); err != nil {
		m.removePartial(dir)
		m.fail(rec, rec.Kind, err)
		return err
	}
	return nil
}

// fail records a failed operation and counts it.
func (m *Manager) fail(rec *Record, kind string, err error) {
	m.finishRecord(rec, StatusFailed, err)
	if rec.Operation == "backup" {
		metrics.RecordBackup(kind, metrics.OutcomeFailure, 0)
	}
}

// removePartial deletes a partial artifact left by a failed operation.
func (m *Manager) removePartial(path string) {
	if err := os.RemoveAll(path); err != nil {
		logging.Warn().Str("path", path).Err(err).Msg("Failed to remove partial artifact")
	}
}
