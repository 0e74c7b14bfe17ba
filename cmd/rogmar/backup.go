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

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a database backup artifact",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "full",
			Short: "Create a full physical backup",
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := newBackupManager()
				if err != nil {
					return err
				}
				rec, err := mgr.CreateFullBackup(cmd.Context())
				if err != nil {
					return err
				}
				printBackupRecord(rec)
				return nil
			},
		},
		&cobra.Command{
			Use:   "incremental",
			Short: "Create an incremental backup against the latest artifact",
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := newBackupManager()
				if err != nil {
					return err
				}
				rec, err := mgr.CreateIncrementalBackup(cmd.Context())
				if err != nil {
					return err
				}
				printBackupRecord(rec)
				return nil
			},
		},
		newDumpCmd(),
	)
	return cmd
}

func newDumpCmd() *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Create a compressed logical dump of one database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newBackupManager()
			if err != nil {
				return err
			}
			rec, err := mgr.CreateDumpBackup(cmd.Context(), database)
			if err != nil {
				return err
			}
			printBackupRecord(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&database, "database", "", "database to dump (required)")
	_ = cmd.MarkFlagRequired("database") //nolint:errcheck // Flag is defined one line above
	return cmd
}

func printBackupRecord(rec *backup.Record) {
	if rec == nil {
		return
	}
	switch rec.Status {
	case backup.StatusSkipped:
		fmt.Fprintf(os.Stdout, "%s skipped: another operation holds the lock\n", rec.Operation)
	case backup.StatusCompleted:
		fmt.Fprintf(os.Stdout, "%s completed: %s (%d bytes)\n", rec.Operation, rec.Artifact, rec.SizeBytes)
	default:
		fmt.Fprintf(os.Stdout, "%s: %s\n", rec.Operation, rec.Status)
	}
}
