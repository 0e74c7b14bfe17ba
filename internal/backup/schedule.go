// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"context"
	"time"
)

// NextScheduledTime determines when the next scheduled backup should run.
//
// Intervals of a day or more snap to the preferred hour: the next occurrence
// of that hour, pushed out by whole days for multi-day intervals. Shorter
// intervals simply count from now.
func (c ScheduleConfig) NextScheduledTime(now time.Time) time.Time {
	if c.Interval >= 24*time.Hour {
		next := time.Date(now.Year(), now.Month(), now.Day(),
			c.PreferredHour, 0, 0, 0, now.Location())

		if next.Before(now) {
			next = next.Add(24 * time.Hour)
		}

		if c.Interval > 24*time.Hour {
			days := int(c.Interval.Hours() / 24)
			next = next.Add(time.Duration(days-1) * 24 * time.Hour)
		}

		return next
	}

	return now.Add(c.Interval)
}

// RetentionPrune applies the configured retention window. Called by the
// daemon after each scheduled backup.
func (m *Manager) RetentionPrune(ctx context.Context) error {
	if m.cfg.RetentionDays <= 0 {
		return nil
	}
	_, err := m.PruneOldArtifacts(ctx, m.cfg.RetentionDays)
	return err
}
