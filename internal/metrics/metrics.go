// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package metrics exposes Prometheus instrumentation for backup, restore,
// and assembly operations. Collectors live on a package registry so the CLI
// and the daemon share one set; the daemon serves it on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels an operation result.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var registry = prometheus.NewRegistry()

var (
	backupsTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "rogmar_backups_total",
		Help: "Backup operations by artifact kind and outcome.",
	}, []string{"kind", "outcome"})

	restoresTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "rogmar_restores_total",
		Help: "Restore operations by outcome.",
	}, []string{"outcome"})

	assembliesTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "rogmar_assemblies_total",
		Help: "Template assembly runs by outcome.",
	}, []string{"outcome"})

	backupDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rogmar_backup_duration_seconds",
		Help:    "Backup duration by artifact kind.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"kind"})

	restoreDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "rogmar_restore_duration_seconds",
		Help:    "Restore duration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	lastBackupTimestamp = promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "rogmar_last_successful_backup_timestamp_seconds",
		Help: "Unix time of the last successful backup by artifact kind.",
	}, []string{"kind"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordBackup records one backup operation.
func RecordBackup(kind, outcome string, duration time.Duration) {
	backupsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeSuccess {
		backupDuration.WithLabelValues(kind).Observe(duration.Seconds())
		lastBackupTimestamp.WithLabelValues(kind).SetToCurrentTime()
	}
}

// RecordRestore records one restore operation.
func RecordRestore(outcome string, duration time.Duration) {
	restoresTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		restoreDuration.Observe(duration.Seconds())
	}
}

// RecordAssembly records one template assembly run.
func RecordAssembly(outcome string) {
	assembliesTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler serving the package registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
