// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package assembler

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// LockState classifies the template lock relative to a fetched revision.
type LockState string

const (
	// LockInitial means no lock exists yet: first run, assets are copied
	// unconditionally.
	LockInitial LockState = "initial"

	// LockUpToDate means the lock matches the fetched revision.
	LockUpToDate LockState = "upToDate"

	// LockStale means the lock differs from the fetched revision. Acting
	// on it requires an explicit force flag.
	LockStale LockState = "stale"
)

// lockDocument is the persisted lock file content.
type lockDocument struct {
	Revision  string    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckLock compares the persisted lock against a fetched revision.
func CheckLock(lockPath, revision string) (LockState, error) {
	data, err := os.ReadFile(lockPath) //nolint:gosec // G304: lock path is project-local
	if err != nil {
		if os.IsNotExist(err) {
			return LockInitial, nil
		}
		return "", fmt.Errorf("failed to read template lock %s: %w", lockPath, err)
	}

	var doc lockDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse template lock %s: %w", lockPath, err)
	}

	if doc.Revision == revision {
		return LockUpToDate, nil
	}
	return LockStale, nil
}

// WriteLock persists the assembled revision. Called only after every copy
// and merge has succeeded.
func WriteLock(lockPath, revision string) error {
	doc := lockDocument{Revision: revision, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(lockPath, data, 0o644); err != nil { //nolint:gosec // Lock carries no secrets
		return fmt.Errorf("failed to write template lock %s: %w", lockPath, err)
	}
	return nil
}
