// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ipukeone/rogmar/internal/backup"
	"github.com/ipukeone/rogmar/internal/daemon"
)

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the backup scheduler, restore watcher, and HTTP listener",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var mgr *backup.Manager
			if cfg.Backup.Enabled {
				var err error
				mgr, err = newBackupManager()
				if err != nil {
					return err
				}
			}

			err := daemon.Run(cmd.Context(), cfg, mgr)
			if errors.Is(err, context.Canceled) {
				// Normal shutdown via SIGINT/SIGTERM.
				return nil
			}
			return err
		},
	}
}
