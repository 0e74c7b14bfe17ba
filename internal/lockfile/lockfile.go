// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package lockfile implements exclusive marker files guarding backup and
// restore runs.
//
// A run acquires the lock at start and releases it through a deferred
// Release, which together with the signal-aware context in cmd covers all
// exit paths: normal return, error return, and termination signal. Locks
// carry no TTL; a crashed process that never released blocks all future
// runs until the file is removed by hand. Holder metadata (pid, hostname,
// time) is written into the file to make that intervention easier.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrHeld is returned by Acquire when the lock file already exists.
var ErrHeld = errors.New("lock file already held")

// Lock represents a held lock file.
type Lock struct {
	path    string
	release sync.Once
	err     error
}

// Acquire creates the lock file exclusively. If the file already exists,
// ErrHeld is returned (wrapped with the current holder's metadata when it
// can be read). The parent directory is created if missing.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		if os.IsExist(err) {
			if holder := Holder(path); holder != "" {
				return nil, fmt.Errorf("%w by %s", ErrHeld, holder)
			}
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	hostname, _ := os.Hostname() //nolint:errcheck // Holder metadata is best effort
	_, werr := fmt.Fprintf(f, "%d %s %s\n", os.Getpid(), hostname, time.Now().Format(time.RFC3339))
	cerr := f.Close()

	if werr != nil || cerr != nil {
		os.Remove(path) //nolint:errcheck // Best effort cleanup on error
		if werr != nil {
			return nil, fmt.Errorf("failed to write lock file: %w", werr)
		}
		return nil, fmt.Errorf("failed to close lock file: %w", cerr)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call multiple times; only the
// first call acts.
func (l *Lock) Release() error {
	l.release.Do(func() {
		l.err = os.Remove(l.path)
	})
	return l.err
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Holder reads the holder metadata from an existing lock file.
// Returns an empty string if the file cannot be read.
func Holder(path string) string {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
