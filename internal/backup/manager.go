// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ipukeone/rogmar/internal/logging"
)

// lockFileName is created in the backup root while an operation runs.
const lockFileName = ".rogmar.lock"

// Manager orchestrates backup, restore, and prune operations for one
// database engine.
//
// Thread safety: metadata access is guarded by metadataMu. The clock, disk,
// and process-table probes are injectable for tests.
type Manager struct {
	cfg    *Config
	engine Engine

	metadataFile string
	metadata     *MetadataStore
	metadataMu   sync.RWMutex

	now          func() time.Time
	diskFree     func(path string) (uint64, error)
	processNames func(ctx context.Context) ([]string, error)
}

// NewManager creates a backup manager for the configured engine.
func NewManager(cfg *Config, engine Engine) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backup configuration is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("backup engine is required")
	}

	if cfg.Enabled {
		if err := cfg.EnsureDirs(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		cfg:          cfg,
		engine:       engine,
		metadataFile: filepath.Join(cfg.BackupDir, "metadata.json"),
		now:          time.Now,
		diskFree:     diskFreeBytes,
		processNames: runningProcessNames,
	}

	if err := m.loadMetadata(); err != nil {
		m.metadata = &MetadataStore{Records: make([]*Record, 0)}
	}

	return m, nil
}

// newRecord initializes a record for one operation.
func (m *Manager) newRecord(operation string, trigger Trigger) *Record {
	if trigger == "" {
		trigger = TriggerManual
	}
	return &Record{
		RunID:     uuid.New().String(),
		Operation: operation,
		Status:    StatusRunning,
		Trigger:   trigger,
		StartedAt: m.now(),
	}
}

// finishRecord stamps the terminal status and persists the record.
func (m *Manager) finishRecord(rec *Record, status Status, err error) {
	rec.Status = status
	if err != nil {
		rec.Error = err.Error()
	}
	completed := m.now()
	rec.CompletedAt = &completed
	rec.Duration = completed.Sub(rec.StartedAt).Milliseconds()
	m.saveRecord(rec)
}

// saveRecord appends or updates a record in the metadata store.
func (m *Manager) saveRecord(rec *Record) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	found := false
	for i, r := range m.metadata.Records {
		if r.RunID == rec.RunID {
			m.metadata.Records[i] = rec
			found = true
			break
		}
	}
	if !found {
		m.metadata.Records = append(m.metadata.Records, rec)
	}

	if err := m.saveMetadataLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist backup metadata")
	}
}

// Records returns a copy of all recorded operations, newest last.
func (m *Manager) Records() []*Record {
	m.metadataMu.RLock()
	defer m.metadataMu.RUnlock()

	out := make([]*Record, len(m.metadata.Records))
	copy(out, m.metadata.Records)
	return out
}

// SetSchedule stores the scheduler's bookkeeping timestamps.
func (m *Manager) SetSchedule(last, next time.Time) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	m.metadata.LastScheduled = &last
	m.metadata.NextScheduled = &next
	if err := m.saveMetadataLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist backup metadata")
	}
}

// loadMetadata loads the metadata store from disk.
func (m *Manager) loadMetadata() error {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	data, err := os.ReadFile(m.metadataFile)
	if err != nil {
		return err
	}

	var store MetadataStore
	if err := json.Unmarshal(data, &store); err != nil {
		return err
	}

	m.metadata = &store
	return nil
}

// saveMetadataLocked writes the metadata store (metadataMu must be held).
func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.metadataFile, data, 0o600)
}

// lockPath returns the lock file guarding the backup root.
func (m *Manager) lockPath() string {
	return filepath.Join(m.cfg.BackupDir, lockFileName)
}

// diskFreeBytes reports free space on the filesystem holding path.
func diskFreeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// runningProcessNames returns the names of all running processes.
func runningProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // Process may have exited mid-scan
		}
		names = append(names, name)
	}
	return names, nil
}

// dirSize returns the cumulative size of all regular files under root.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error { //nolint:errcheck // Size is informational
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr // Skip unreadable entries
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
