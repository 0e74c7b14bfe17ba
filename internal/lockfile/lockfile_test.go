// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// TestAcquireRelease tests the basic acquire/release cycle
func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file not on disk after Acquire: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file still on disk after Release")
	}
}

// TestAcquireHeld tests that a second acquire is refused
func TestAcquireHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restore.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release() //nolint:errcheck // Test cleanup

	if _, err := Acquire(path); !errors.Is(err, ErrHeld) {
		t.Errorf("second Acquire: got %v, want ErrHeld", err)
	}
}

// TestReacquireAfterRelease tests that the lock can be taken again
func TestReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("re-Acquire failed: %v", err)
	}
	if err := again.Release(); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
}

// TestReleaseIdempotent tests repeated Release calls
func TestReleaseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("first Release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got: %v", err)
	}
}

// TestHolderMetadata tests that the lock records pid and hostname
func TestHolderMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release() //nolint:errcheck // Test cleanup

	holder := Holder(path)
	if holder == "" {
		t.Fatal("expected holder metadata")
	}
	if !strings.HasPrefix(holder, strconv.Itoa(os.Getpid())) {
		t.Errorf("holder %q does not start with current pid", holder)
	}
}

// TestAcquireCreatesParentDir tests directory creation for nested lock paths
func TestAcquireCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "backup.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire with missing parent failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}
