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

func newPruneCmd() *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete backup artifacts older than the retention window",
		Long: "prune deletes artifacts past the retention window, but only when a\n" +
			"full backup newer than the cutoff exists. Without one the run is\n" +
			"refused: deleting the only restorable chain is never worth the disk.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newBackupManager()
			if err != nil {
				return err
			}
			days := retentionDays
			if days == 0 {
				days = cfg.Backup.RetentionDays
			}
			rec, err := mgr.PruneOldArtifacts(cmd.Context(), days)
			if err != nil {
				return err
			}
			printPruneRecord(rec)
			return nil
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "override the configured retention window")
	return cmd
}

func printPruneRecord(rec *backup.Record) {
	if rec == nil {
		return
	}
	switch rec.Status {
	case backup.StatusSkipped:
		fmt.Fprintln(os.Stdout, "prune skipped: see the log for the reason")
	case backup.StatusCompleted:
		fmt.Fprintln(os.Stdout, "prune completed")
	default:
		fmt.Fprintf(os.Stdout, "prune: %s\n", rec.Status)
	}
}
