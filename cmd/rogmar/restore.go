// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ipukeone/rogmar/internal/backup"
)

func newRestoreCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the latest backup chain from the restore directory",
		Long: "restore resolves the newest full backup and its incrementals in the\n" +
			"restore directory, prepares them, and copies the result into the data\n" +
			"directory. The database must be stopped; its data directory is\n" +
			"replaced wholesale.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newBackupManager()
			if err != nil {
				return err
			}
			rec, err := mgr.Restore(cmd.Context(), backup.RestoreOptions{
				DryRun:  dryRun,
				Trigger: backup.TriggerManual,
			})
			if err != nil {
				return err
			}
			printRestoreRecord(rec, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and prepare the chain without touching the data directory")
	return cmd
}

func printRestoreRecord(rec *backup.Record, dryRun bool) {
	if rec == nil {
		return
	}
	switch rec.Status {
	case backup.StatusSkipped:
		fmt.Fprintln(os.Stdout, "restore skipped: nothing to restore")
	case backup.StatusCompleted:
		if dryRun {
			fmt.Fprintf(os.Stdout, "restore dry run succeeded: chain from %s is consistent\n", rec.Artifact)
			return
		}
		fmt.Fprintf(os.Stdout, "restore completed from %s\n", rec.Artifact)
	default:
		fmt.Fprintf(os.Stdout, "restore: %s\n", rec.Status)
	}
}
