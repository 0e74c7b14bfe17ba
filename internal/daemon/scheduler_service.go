// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package daemon

import (
	"context"
	"time"

	"github.com/ipukeone/rogmar/internal/backup"
	"github.com/ipukeone/rogmar/internal/logging"
)

// backupScheduler is the slice of the backup manager the scheduler drives.
type backupScheduler interface {
	CreateScheduledBackup(ctx context.Context) (*backup.Record, error)
	RetentionPrune(ctx context.Context) error
	SetSchedule(last, next time.Time)
}

// SchedulerService runs backups on the configured interval. A failed run is
// logged and the next one scheduled; the service itself only stops with its
// context. Runs colliding with a manual backup are skipped by the manager's
// lock, not queued.
type SchedulerService struct {
	mgr      backupScheduler
	schedule backup.ScheduleConfig

	now func() time.Time
}

// NewSchedulerService creates the scheduler for the given manager.
func NewSchedulerService(mgr backupScheduler, schedule backup.ScheduleConfig) *SchedulerService {
	return &SchedulerService{mgr: mgr, schedule: schedule, now: time.Now}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	var last time.Time
	for {
		now := s.now()
		next := s.schedule.NextScheduledTime(now)
		s.mgr.SetSchedule(last, next)
		logging.Info().
			Time("next_backup", next).
			Str("kind", s.schedule.Kind).
			Msg("Backup scheduled")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		last = s.now()
		s.runOnce(ctx)
	}
}

// runOnce performs one scheduled backup plus retention pruning.
func (s *SchedulerService) runOnce(ctx context.Context) {
	rec, err := s.mgr.CreateScheduledBackup(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Scheduled backup failed")
		return
	}
	if rec != nil && rec.Status == backup.StatusSkipped {
		logging.Info().Msg("Scheduled backup skipped")
		return
	}

	if err := s.mgr.RetentionPrune(ctx); err != nil {
		logging.Error().Err(err).Msg("Retention pruning failed")
	}
}

// String identifies the service in supervisor logs.
func (s *SchedulerService) String() string {
	return "backup-scheduler"
}
