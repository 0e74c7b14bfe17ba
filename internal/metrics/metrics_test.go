// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestHandlerExposesCollectors tests that recorded operations appear on the scrape output
func TestHandlerExposesCollectors(t *testing.T) {
	RecordBackup("full", OutcomeSuccess, 3*time.Second)
	RecordBackup("incremental", OutcomeSkipped, 0)
	RecordRestore(OutcomeFailure, 0)
	RecordAssembly(OutcomeSuccess)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("scrape status = %d, want 200", rr.Code)
	}
	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`rogmar_backups_total{kind="full",outcome="success"} 1`,
		`rogmar_backups_total{kind="incremental",outcome="skipped"} 1`,
		`rogmar_restores_total{outcome="failure"} 1`,
		`rogmar_assemblies_total{outcome="success"} 1`,
		"rogmar_backup_duration_seconds",
		"rogmar_last_successful_backup_timestamp_seconds",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
