// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ipukeone/rogmar/internal/artifact"
	"github.com/ipukeone/rogmar/internal/errdefs"
	"github.com/ipukeone/rogmar/internal/logging"
	"github.com/ipukeone/rogmar/internal/metrics"
)

// Restore resolves the restore chain from the restore directory and copies
// it back into the data directory.
//
// Preconditions are the inverse of a backup's: the database server must be
// stopped (ping fails, no server process running) and the data directory
// must be writable. An empty restore directory is an informational no-op.
func (m *Manager) Restore(ctx context.Context, opts RestoreOptions) (*Record, error) {
	rec := m.newRecord("restore", opts.Trigger)

	lock, acquired, err := m.acquireLock(rec)
	if err != nil || !acquired {
		return rec, err
	}
	defer lock.Release()

	entries, err := artifact.List(m.cfg.RestoreDir)
	if err != nil {
		m.failRestore(rec, err)
		return rec, err
	}

	chain, err := artifact.ResolveRestoreChain(entries)
	if err != nil {
		m.failRestore(rec, err)
		return rec, err
	}
	if chain == nil {
		logging.Info().
			Str("run_id", rec.RunID).
			Str("restore_dir", m.cfg.RestoreDir).
			Msg("No restorable artifacts found, nothing to do")
		m.finishRecord(rec, StatusSkipped, nil)
		return rec, nil
	}

	rec.Artifact = chain.Full().ID.String()
	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Int("incrementals", len(chain.Incrementals())).
		Bool("dry_run", opts.DryRun).
		Msg("Starting restore")

	if err := m.checkRestorePreconditions(ctx, rec); err != nil {
		return rec, err
	}

	fullDir, incrDirs, cleanup, err := m.materializeChain(chain)
	if err != nil {
		m.failRestore(rec, err)
		return rec, err
	}
	defer cleanup()

	if err := m.prepareChain(ctx, rec, fullDir, incrDirs); err != nil {
		m.failRestore(rec, err)
		return rec, err
	}

	if opts.DryRun {
		logging.Info().
			Str("run_id", rec.RunID).
			Str("artifact", rec.Artifact).
			Msg("Dry run: chain prepared, data directory untouched")
		m.finishRecord(rec, StatusCompleted, nil)
		return rec, nil
	}

	if err := m.copyBackPrepared(ctx, rec, fullDir); err != nil {
		return rec, err
	}

	m.finishRecord(rec, StatusCompleted, nil)
	metrics.RecordRestore(metrics.OutcomeSuccess, m.now().Sub(rec.StartedAt))
	logging.Info().
		Str("run_id", rec.RunID).
		Str("artifact", rec.Artifact).
		Msg("Restore completed")
	return rec, nil
}

// checkRestorePreconditions verifies the database is stopped and the data
// directory is writable.
func (m *Manager) checkRestorePreconditions(ctx context.Context, rec *Record) error {
	if err := m.engine.Ping(ctx); err == nil {
		err = errdefs.Precondition("database at %s:%d is still reachable, stop it before restoring",
			m.cfg.Host, m.cfg.Port)
		m.failRestore(rec, err)
		return err
	}

	running, err := m.processNames(ctx)
	if err != nil {
		err = errdefs.WrapPrecondition(err, "cannot scan the process table")
		m.failRestore(rec, err)
		return err
	}
	for _, name := range m.engine.ProcessNames() {
		if slices.Contains(running, name) {
			err = errdefs.Precondition("database process %q is still running, stop it before restoring", name)
			m.failRestore(rec, err)
			return err
		}
	}

	if err := checkDirWritable(m.cfg.DataDir); err != nil {
		err = errdefs.WrapPrecondition(err, "data directory %s is not writable", m.cfg.DataDir)
		m.failRestore(rec, err)
		return err
	}
	return nil
}

// materializeChain returns usable directories for every chain member,
// extracting archived members into a scratch directory first. The cleanup
// function removes the scratch directory.
func (m *Manager) materializeChain(chain artifact.Chain) (fullDir string, incrDirs []string, cleanup func(), err error) {
	cleanup = func() {}

	var scratch string
	materialize := func(e artifact.Entry) (string, error) {
		if !e.Archived {
			return e.Path, nil
		}
		if scratch == "" {
			scratch, err = os.MkdirTemp(m.cfg.RestoreDir, ".extract-*")
			if err != nil {
				return "", fmt.Errorf("failed to create extraction directory: %w", err)
			}
			cleanup = func() {
				if err := os.RemoveAll(scratch); err != nil {
					logging.Warn().Str("path", scratch).Err(err).Msg("Failed to remove extraction directory")
				}
			}
		}
		dest := filepath.Join(scratch, e.ID.DirName())
		if err := extractArchive(e.Path, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	fullDir, err = materialize(*chain.Full())
	if err != nil {
		cleanup()
		return "", nil, func() {}, err
	}
	for _, incr := range chain.Incrementals() {
		dir, err := materialize(incr)
		if err != nil {
			cleanup()
			return "", nil, func() {}, err
		}
		incrDirs = append(incrDirs, dir)
	}
	return fullDir, incrDirs, cleanup, nil
}

// prepareChain prepares the full artifact and folds in each incremental in
// ascending order.
func (m *Manager) prepareChain(ctx context.Context, rec *Record, fullDir string, incrDirs []string) error {
	logging.Debug().
		Str("run_id", rec.RunID).
		Str("full_dir", fullDir).
		Msg("Preparing full artifact")
	if err := m.engine.Prepare(ctx, fullDir); err != nil {
		return err
	}

	for _, dir := range incrDirs {
		logging.Debug().
			Str("run_id", rec.RunID).
			Str("incremental_dir", dir).
			Msg("Applying incremental artifact")
		if err := m.engine.ApplyIncremental(ctx, fullDir, dir); err != nil {
			return err
		}
	}
	return nil
}

// copyBackPrepared wipes the data directory, copies the prepared artifact
// in, and applies the configured ownership.
func (m *Manager) copyBackPrepared(ctx context.Context, rec *Record, fullDir string) error {
	if err := wipeDir(m.cfg.DataDir); err != nil {
		err = fmt.Errorf("failed to clear data directory: %w", err)
		m.failRestore(rec, err)
		return err
	}

	if err := m.engine.CopyBack(ctx, fullDir, m.cfg.DataDir); err != nil {
		m.failRestore(rec, err)
		return err
	}

	if m.cfg.OwnerUID > 0 || m.cfg.OwnerGID > 0 {
		if err := chownTree(m.cfg.DataDir, m.cfg.OwnerUID, m.cfg.OwnerGID); err != nil {
			err = fmt.Errorf("failed to set data directory ownership: %w", err)
			m.failRestore(rec, err)
			return err
		}
	}
	return nil
}

// failRestore records a failed restore and counts it.
func (m *Manager) failRestore(rec *Record, err error) {
	m.finishRecord(rec, StatusFailed, err)
	metrics.RecordRestore(metrics.OutcomeFailure, 0)
}

// checkDirWritable probes dir by creating and removing a scratch file.
func checkDirWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()       //nolint:errcheck // Probe file, content irrelevant
	os.Remove(name) //nolint:errcheck // Best effort cleanup
	return nil
}

// wipeDir removes everything inside dir but keeps dir itself, preserving
// its mount point and permissions.
func wipeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		// lost+found belongs to the filesystem, not the database.
		if e.Name() == "lost+found" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// chownTree applies uid/gid to every file under root.
func chownTree(root string, uid, gid int) error {
	return filepath.WalkDir(root, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("chown %s: %w", strings.TrimPrefix(path, root), err)
		}
		return nil
	})
}
