// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package daemon runs rogmar's long-lived mode: a suture-supervised tree
// holding the backup scheduler, the one-shot restore watcher, and an HTTP
// listener for liveness and Prometheus metrics.
package daemon

import (
	"context"

	"github.com/ipukeone/rogmar/internal/backup"
	"github.com/ipukeone/rogmar/internal/config"
	"github.com/ipukeone/rogmar/internal/logging"
)

// Run assembles the supervision tree from the configuration and serves it
// until ctx is canceled. mgr may be nil when backups are disabled; only the
// HTTP surface runs then.
func Run(ctx context.Context, cfg *config.Config, mgr *backup.Manager) error {
	tree := NewTree(DefaultTreeConfig())

	if mgr != nil {
		tree.AddBackupService(NewRestoreWatcherService(mgr))
		if cfg.Backup.Schedule.Enabled {
			tree.AddBackupService(NewSchedulerService(mgr, cfg.BackupConfig().Schedule))
		} else {
			logging.Info().Msg("Backup schedule disabled, running without scheduler")
		}
	}

	tree.AddAPIService(NewHTTPService(cfg.Server.Listen, cfg.Server.Timeout))

	logging.Info().
		Str("listen", cfg.Server.Listen).
		Bool("backups", mgr != nil).
		Msg("Daemon starting")
	return tree.Serve(ctx)
}
