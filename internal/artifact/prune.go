// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package artifact

import (
	"time"
)

// SelectPrunable returns the artifacts older than the retention window.
//
// The selection is asymmetric on purpose: it is only valid when at least
// one full backup remains inside the window. With zero in-window fulls the
// second return value is false and nothing may be deleted, because pruning
// would otherwise remove the only restorable baseline. Callers log a
// warning in that case and move on.
func SelectPrunable(entries []Entry, retentionDays int, now time.Time) ([]Entry, bool) {
	if retentionDays <= 0 {
		return nil, true
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	recentFull := false
	for _, e := range Fulls(entries) {
		if !e.ModTime.Before(cutoff) {
			recentFull = true
			break
		}
	}
	if !recentFull {
		return nil, false
	}

	var prunable []Entry
	for _, e := range entries {
		if e.ModTime.Before(cutoff) {
			prunable = append(prunable, e)
		}
	}
	return prunable, true
}
