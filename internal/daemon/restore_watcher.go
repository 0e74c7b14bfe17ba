// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package daemon

import (
	"context"

	"github.com/thejerf/suture/v4"

	"github.com/ipukeone/rogmar/internal/backup"
	"github.com/ipukeone/rogmar/internal/logging"
)

// restorer is the slice of the backup manager the watcher drives.
type restorer interface {
	Restore(ctx context.Context, opts backup.RestoreOptions) (*backup.Record, error)
}

// RestoreWatcherService performs one restore attempt at daemon startup and
// then retires. The manager itself treats an empty restore directory as a
// no-op, so the watcher runs unconditionally. A failed restore is not
// retried: its preconditions (stopped database, intact chain) will not
// change without operator intervention.
type RestoreWatcherService struct {
	mgr restorer
}

// NewRestoreWatcherService creates the one-shot restore watcher.
func NewRestoreWatcherService(mgr restorer) *RestoreWatcherService {
	return &RestoreWatcherService{mgr: mgr}
}

// Serve implements suture.Service, returning ErrDoNotRestart so the
// supervisor retires the service after its single pass.
func (w *RestoreWatcherService) Serve(ctx context.Context) error {
	rec, err := w.mgr.Restore(ctx, backup.RestoreOptions{Trigger: backup.TriggerWatcher})
	switch {
	case err != nil:
		logging.Error().Err(err).Msg("Startup restore failed")
	case rec != nil && rec.Status == backup.StatusCompleted:
		logging.Info().Str("artifact", rec.Artifact).Msg("Startup restore completed")
	}
	return suture.ErrDoNotRestart
}

// String identifies the service in supervisor logs.
func (w *RestoreWatcherService) String() string {
	return "restore-watcher"
}
