// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package backup manages physical and logical database backups and their
// restoration.
//
// Artifacts come in three kinds:
//
//	Full:        engine-native copy of the database files (mariadb-backup,
//	             pg_basebackup) under full/<date>_<NN>/
//	Incremental: delta against the latest full, MariaDB only, under
//	             incremental/<date>_<NN>_<MM>/
//	Dump:        compressed logical export of one database under dumps/
//
// The Manager orchestrates creation, verification, pruning, and restoration.
// Each operation runs under a filesystem lock; a lock already held by
// another invocation skips the run rather than queueing behind it. Every
// operation's outcome is recorded in metadata.json in the backup root.
//
// Restoration resolves the newest full artifact plus its gap-free
// incremental chain from the restore directory, prepares them, and copies
// the result into the (stopped) database's data directory.
//
// Usage:
//
//	mgr, err := backup.NewManager(cfg, engine)
//	rec, err := mgr.CreateFullBackup(ctx)
//	rec, err := mgr.Restore(ctx, backup.RestoreOptions{DryRun: true})
package backup

import (
	"time"
)

// Status represents the state of one backup or restore operation.
type Status string

const (
	// StatusRunning indicates the operation is in flight.
	StatusRunning Status = "running"

	// StatusVerifying indicates the artifact is written and being checked.
	StatusVerifying Status = "verifying"

	// StatusCompleted indicates the operation finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the operation failed; partial artifacts are
	// removed before this status is recorded.
	StatusFailed Status = "failed"

	// StatusSkipped indicates the operation did not run, e.g. because
	// another invocation holds the lock.
	StatusSkipped Status = "skipped"
)

// Trigger indicates what initiated an operation.
type Trigger string

const (
	// TriggerManual indicates a user-initiated CLI invocation.
	TriggerManual Trigger = "manual"

	// TriggerScheduled indicates the daemon scheduler.
	TriggerScheduled Trigger = "scheduled"

	// TriggerWatcher indicates the daemon restore watcher.
	TriggerWatcher Trigger = "watcher"
)

// Record is the stored metadata for one operation.
type Record struct {
	// RunID is unique per invocation and also appears in log lines.
	RunID string `json:"run_id"`

	// Operation is backup, restore, or prune.
	Operation string `json:"operation"`

	// Artifact is the canonical artifact name, e.g. "full_20250101_01".
	// Empty for restore and prune records.
	Artifact string `json:"artifact,omitempty"`

	// Kind of artifact: full, incremental, or dump.
	Kind string `json:"kind,omitempty"`

	// Base names the artifact an incremental was diffed against.
	Base string `json:"base,omitempty"`

	// Database named in a dump record.
	Database string `json:"database,omitempty"`

	Status  Status  `json:"status"`
	Trigger Trigger `json:"trigger"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Duration    int64      `json:"duration_ms"`

	// Path of the produced artifact.
	Path string `json:"path,omitempty"`

	// SizeBytes of the produced artifact.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// Error message if the operation failed.
	Error string `json:"error,omitempty"`
}

// MetadataStore holds all recorded operations, persisted as metadata.json
// in the backup root.
type MetadataStore struct {
	Records []*Record `json:"records"`

	// LastScheduled is the time the daemon last ran a scheduled backup.
	LastScheduled *time.Time `json:"last_scheduled,omitempty"`

	// NextScheduled is the time the daemon will next run one.
	NextScheduled *time.Time `json:"next_scheduled,omitempty"`
}

// RestoreOptions configures a restore run.
type RestoreOptions struct {
	// DryRun resolves and prepares the chain but leaves the data
	// directory untouched.
	DryRun bool

	// Trigger defaults to TriggerManual.
	Trigger Trigger
}
