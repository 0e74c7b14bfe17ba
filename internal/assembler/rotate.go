// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package assembler

import (
	"fmt"
	"os"
)

// rotateBackups shifts path's numbered backups up by one and moves the
// current file to .bak.1, keeping at most keep generations. The oldest
// generation falls off the end. A keep of zero disables backups, and a
// missing current file is fine.
func rotateBackups(path string, keep int) error {
	if keep <= 0 {
		return nil
	}

	oldest := backupName(path, keep)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", oldest, err)
	}

	for n := keep - 1; n >= 1; n-- {
		src := backupName(path, n)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := backupName(path, n+1)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to rotate %s: %w", src, err)
		}
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.Rename(path, backupName(path, 1)); err != nil {
		return fmt.Errorf("failed to rotate %s: %w", path, err)
	}
	return nil
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.bak.%d", path, n)
}
