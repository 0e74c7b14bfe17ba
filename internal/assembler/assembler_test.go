// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package assembler

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/ipukeone/rogmar/internal/compose"
	"github.com/ipukeone/rogmar/internal/errdefs"
	"github.com/ipukeone/rogmar/internal/execx"
	"github.com/ipukeone/rogmar/internal/gitfetch"
)

// fakeRunner records invoked commands instead of executing them.
type fakeRunner struct {
	cmds []execx.Cmd
}

func (r *fakeRunner) Run(_ context.Context, c execx.Cmd) error {
	r.cmds = append(r.cmds, c)
	return nil
}

// writeTemplates lays out a two-service template tree and returns its root.
func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"redis/compose.yml":              "services:\n  redis:\n    image: redis:7\nvolumes:\n  redis-data: {}\n",
		"redis/.env":                     "# Redis settings\nREDIS_PORT=6379\n",
		"redis/scripts/healthcheck.sh":   "#!/bin/sh\nexit 0\n",
		"postgresql/compose.yml":         "services:\n  postgresql:\n    image: postgres:16\n",
		"postgresql/.env":                "POSTGRES_USER=app\n",
		"postgresql/secrets/pg_pass.txt": "changeme\n",
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// writeProject creates a project directory with a primary descriptor
// declaring both template services.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	descriptor := "x-required-services:\n" +
		"  - redis\n" +
		"  - postgresql\n" +
		"services:\n" +
		"  redis:\n" +
		"    restart: unless-stopped\n"
	if err := os.WriteFile(filepath.Join(dir, "rogmar.yml"), []byte(descriptor), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// newTestAssembler wires an Assembler to a local template tree. The
// snapshot leaves Dir empty so Close does not delete the shared tree
// between runs.
func newTestAssembler(t *testing.T, templateDir string, revision *string) (*Assembler, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	fetch := func(_ context.Context, _, _, _ string) (*gitfetch.Snapshot, error) {
		return &gitfetch.Snapshot{Revision: *revision, Subpath: templateDir}, nil
	}
	cfg := Config{
		RemoteURL:     "https://example.invalid/templates.git",
		Ref:           "main",
		Descriptor:    "rogmar.yml",
		RotationCount: 2,
	}
	return NewWithFetcher(cfg, fetch, runner), runner
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// TestAssembleInitial tests the first run: assets copied, outputs merged, lock written
func TestAssembleInitial(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)
	project := writeProject(t)

	res, err := a.Assemble(context.Background(), project, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if res.LockState != LockInitial {
		t.Errorf("lock state = %s, want %s", res.LockState, LockInitial)
	}
	if res.Revision != "abc123" {
		t.Errorf("revision = %s, want abc123", res.Revision)
	}
	if !reflect.DeepEqual(res.Services, []string{"redis", "postgresql"}) {
		t.Errorf("services = %v", res.Services)
	}

	for _, rel := range []string{
		"compose/redis.yml",
		"compose/postgresql.yml",
		"env/redis.env",
		"env/postgresql.env",
		"scripts/healthcheck.sh",
		"secrets/pg_pass.txt",
	} {
		if !slices.Contains(res.CopiedAssets, rel) {
			t.Errorf("asset %s not reported as copied (got %v)", rel, res.CopiedAssets)
		}
		if _, err := os.Stat(filepath.Join(project, rel)); err != nil {
			t.Errorf("asset %s not on disk: %v", rel, err)
		}
	}

	merged, err := compose.Load(filepath.Join(project, OutputDescriptorName))
	if err != nil {
		t.Fatalf("load merged descriptor: %v", err)
	}
	if got := merged.SectionKeys("services"); !reflect.DeepEqual(got, []string{"postgresql", "redis"}) {
		t.Errorf("merged services = %v, want [postgresql redis]", got)
	}
	// The declaration key must not leak into the output
	if strings.Contains(readFile(t, filepath.Join(project, OutputDescriptorName)), compose.RequiredServicesKey) {
		t.Error("reserved key leaked into merged descriptor")
	}

	env := readFile(t, filepath.Join(project, OutputEnvName))
	want := "# Redis settings\nREDIS_PORT=6379\nPOSTGRES_USER=app\n"
	if env != want {
		t.Errorf("merged env = %q, want %q", env, want)
	}
	if res.DuplicateKeys != 0 {
		t.Errorf("duplicate keys = %d, want 0", res.DuplicateKeys)
	}

	state, err := CheckLock(filepath.Join(project, LockFileName), "abc123")
	if err != nil {
		t.Fatalf("CheckLock failed: %v", err)
	}
	if state != LockUpToDate {
		t.Errorf("lock after run = %s, want %s", state, LockUpToDate)
	}
}

// TestAssembleIdempotent tests that a second run changes nothing
func TestAssembleIdempotent(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)
	project := writeProject(t)

	if _, err := a.Assemble(context.Background(), project, Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	descriptor := readFile(t, filepath.Join(project, OutputDescriptorName))
	env := readFile(t, filepath.Join(project, OutputEnvName))

	res, err := a.Assemble(context.Background(), project, Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if res.LockState != LockUpToDate {
		t.Errorf("lock state = %s, want %s", res.LockState, LockUpToDate)
	}
	if len(res.CopiedAssets) != 0 {
		t.Errorf("second run copied assets: %v", res.CopiedAssets)
	}
	if res.DescriptorChanged || res.EnvChanged {
		t.Error("second run reported changed outputs")
	}
	if got := readFile(t, filepath.Join(project, OutputDescriptorName)); got != descriptor {
		t.Error("descriptor changed between identical runs")
	}
	if got := readFile(t, filepath.Join(project, OutputEnvName)); got != env {
		t.Error("env file changed between identical runs")
	}
	// No rotation happens when nothing was rewritten
	if _, err := os.Stat(filepath.Join(project, OutputDescriptorName+".bak.1")); !os.IsNotExist(err) {
		t.Error("unchanged output was rotated")
	}
}

// TestAssembleCopiesNewlyAddedService tests asset copying for a service added
// to the required list after the initial run, with the lock still current
func TestAssembleCopiesNewlyAddedService(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)
	project := t.TempDir()
	redisOnly := "x-required-services:\n  - redis\n"
	if err := os.WriteFile(filepath.Join(project, "rogmar.yml"), []byte(redisOnly), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Assemble(context.Background(), project, Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(project, "compose", "postgresql.yml")); !os.IsNotExist(err) {
		t.Fatal("undeclared service was copied")
	}

	both := "x-required-services:\n  - redis\n  - postgresql\n"
	if err := os.WriteFile(filepath.Join(project, "rogmar.yml"), []byte(both), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := a.Assemble(context.Background(), project, Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if res.LockState != LockUpToDate {
		t.Errorf("lock state = %s, want %s", res.LockState, LockUpToDate)
	}
	for _, rel := range []string{
		"compose/postgresql.yml",
		"env/postgresql.env",
		"secrets/pg_pass.txt",
	} {
		if !slices.Contains(res.CopiedAssets, rel) {
			t.Errorf("asset %s not reported as copied (got %v)", rel, res.CopiedAssets)
		}
		if _, err := os.Stat(filepath.Join(project, rel)); err != nil {
			t.Errorf("asset %s was not copied for the newly added service: %v", rel, err)
		}
	}
	// The services already in place were left alone: nothing re-copied.
	for _, rel := range res.CopiedAssets {
		if strings.HasPrefix(rel, "compose/redis") || strings.HasPrefix(rel, "env/redis") {
			t.Errorf("existing service asset %s was re-copied", rel)
		}
	}
	if !strings.Contains(readFile(t, filepath.Join(project, OutputEnvName)), "POSTGRES_USER=app") {
		t.Error("merged env missing the new service's defaults")
	}
}

// TestAssembleStaleWithoutForce tests that upstream changes do not touch local copies
func TestAssembleStaleWithoutForce(t *testing.T) {
	rev := "abc123"
	templates := writeTemplates(t)
	a, _ := newTestAssembler(t, templates, &rev)
	project := writeProject(t)

	if _, err := a.Assemble(context.Background(), project, Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Upstream moves on and rewrites the redis fragment.
	rev = "def456"
	newFragment := "services:\n  redis:\n    image: redis:8\n"
	if err := os.WriteFile(filepath.Join(templates, "redis", "compose.yml"), []byte(newFragment), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := a.Assemble(context.Background(), project, Options{})
	if err != nil {
		t.Fatalf("stale run failed: %v", err)
	}

	if res.LockState != LockStale {
		t.Errorf("lock state = %s, want %s", res.LockState, LockStale)
	}
	if len(res.CopiedAssets) != 0 {
		t.Errorf("stale run without force copied assets: %v", res.CopiedAssets)
	}
	// Merge still uses the project's pinned copy
	if strings.Contains(readFile(t, filepath.Join(project, OutputDescriptorName)), "redis:8") {
		t.Error("merged descriptor picked up upstream changes without force")
	}
	// Lock stays at the copied revision
	state, err := CheckLock(filepath.Join(project, LockFileName), "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if state != LockUpToDate {
		t.Errorf("lock moved without force: state vs abc123 = %s", state)
	}
}

// TestAssembleForcedRefresh tests that force refreshes fragments but spares scripts and secrets
func TestAssembleForcedRefresh(t *testing.T) {
	rev := "abc123"
	templates := writeTemplates(t)
	a, _ := newTestAssembler(t, templates, &rev)
	project := writeProject(t)

	if _, err := a.Assemble(context.Background(), project, Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// The user customized a secret and a script after the first copy.
	customSecret := "user-chosen-password\n"
	if err := os.WriteFile(filepath.Join(project, "secrets", "pg_pass.txt"), []byte(customSecret), 0o644); err != nil {
		t.Fatal(err)
	}

	rev = "def456"
	newFragment := "services:\n  redis:\n    image: redis:8\n"
	if err := os.WriteFile(filepath.Join(templates, "redis", "compose.yml"), []byte(newFragment), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := a.Assemble(context.Background(), project, Options{Force: true})
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}

	if res.LockState != LockStale {
		t.Errorf("lock state = %s, want %s", res.LockState, LockStale)
	}
	if got := readFile(t, filepath.Join(project, "compose", "redis.yml")); got != newFragment {
		t.Errorf("fragment not refreshed: %q", got)
	}
	if got := readFile(t, filepath.Join(project, "secrets", "pg_pass.txt")); got != customSecret {
		t.Errorf("forced refresh overwrote a secret: %q", got)
	}
	if !strings.Contains(readFile(t, filepath.Join(project, OutputDescriptorName)), "redis:8") {
		t.Error("merged descriptor missing refreshed fragment")
	}
	state, err := CheckLock(filepath.Join(project, LockFileName), "def456")
	if err != nil {
		t.Fatal(err)
	}
	if state != LockUpToDate {
		t.Errorf("lock not advanced to new revision: %s", state)
	}
}

// TestAssembleDryRun tests that a dry run reports work but writes nothing
func TestAssembleDryRun(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)
	project := writeProject(t)

	res, err := a.Assemble(context.Background(), project, Options{DryRun: true})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	if len(res.CopiedAssets) == 0 {
		t.Error("dry run reported no assets to copy")
	}
	if !res.DescriptorChanged || !res.EnvChanged {
		t.Error("dry run should report pending output changes")
	}

	for _, rel := range []string{
		OutputDescriptorName,
		OutputEnvName,
		LockFileName,
		"compose/redis.yml",
		"scripts/healthcheck.sh",
	} {
		if _, err := os.Stat(filepath.Join(project, rel)); !os.IsNotExist(err) {
			t.Errorf("dry run wrote %s", rel)
		}
	}
}

// TestAssembleRotatesChangedOutputs tests backup rotation on rewrite
func TestAssembleRotatesChangedOutputs(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)
	project := writeProject(t)

	if _, err := a.Assemble(context.Background(), project, Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	firstDescriptor := readFile(t, filepath.Join(project, OutputDescriptorName))

	// Declaring an extra setting in the primary changes the merged output.
	descriptor := "x-required-services:\n" +
		"  - redis\n" +
		"  - postgresql\n" +
		"services:\n" +
		"  redis:\n" +
		"    restart: always\n"
	if err := os.WriteFile(filepath.Join(project, "rogmar.yml"), []byte(descriptor), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := a.Assemble(context.Background(), project, Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !res.DescriptorChanged {
		t.Error("descriptor change not detected")
	}
	if got := readFile(t, filepath.Join(project, OutputDescriptorName+".bak.1")); got != firstDescriptor {
		t.Error("previous descriptor not preserved as .bak.1")
	}
}

// TestAssembleDuplicateEnvKeys tests first-writer-wins across env sources
func TestAssembleDuplicateEnvKeys(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)
	project := writeProject(t)
	if err := os.WriteFile(filepath.Join(project, LocalEnvName), []byte("REDIS_PORT=7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := a.Assemble(context.Background(), project, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if res.DuplicateKeys != 1 {
		t.Errorf("duplicate keys = %d, want 1", res.DuplicateKeys)
	}
	env := readFile(t, filepath.Join(project, OutputEnvName))
	if !strings.Contains(env, "REDIS_PORT=7000") {
		t.Errorf("local override lost: %q", env)
	}
	if strings.Contains(env, "REDIS_PORT=6379") {
		t.Errorf("duplicate definition survived: %q", env)
	}
}

// TestAssembleUnknownService tests the error for a service with no template
func TestAssembleUnknownService(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)
	project := t.TempDir()
	descriptor := "x-required-services:\n  - redis\n  - mongodb\n"
	if err := os.WriteFile(filepath.Join(project, "rogmar.yml"), []byte(descriptor), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := a.Assemble(context.Background(), project, Options{})
	if !errdefs.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got: %v", err)
	}
	// A failed run must not leave a lock behind
	if _, err := os.Stat(filepath.Join(project, LockFileName)); !os.IsNotExist(err) {
		t.Error("failed run wrote a lock file")
	}
}

// TestAssembleMissingDescriptor tests the error for an absent primary descriptor
func TestAssembleMissingDescriptor(t *testing.T) {
	rev := "abc123"
	a, _ := newTestAssembler(t, writeTemplates(t), &rev)

	_, err := a.Assemble(context.Background(), t.TempDir(), Options{})
	if !errdefs.IsConfig(err) {
		t.Errorf("expected ConfigError, got: %v", err)
	}
}

// TestAssembleDeleteVolumes tests volume removal through the runner
func TestAssembleDeleteVolumes(t *testing.T) {
	rev := "abc123"
	a, runner := newTestAssembler(t, writeTemplates(t), &rev)
	project := writeProject(t)

	if _, err := a.Assemble(context.Background(), project, Options{DeleteVolumes: true}); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if len(runner.cmds) != 1 {
		t.Fatalf("commands run = %d, want 1", len(runner.cmds))
	}
	cmd := runner.cmds[0]
	wantVolume := filepath.Base(project) + "_redis-data"
	wantArgs := []string{"volume", "rm", "--force", wantVolume}
	if cmd.Name != "docker" || !reflect.DeepEqual(cmd.Args, wantArgs) {
		t.Errorf("command = %s %v, want docker %v", cmd.Name, cmd.Args, wantArgs)
	}
}

// TestCheckLockStates tests the three lock states
func TestCheckLockStates(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), LockFileName)

	state, err := CheckLock(lockPath, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if state != LockInitial {
		t.Errorf("absent lock = %s, want %s", state, LockInitial)
	}

	if err := WriteLock(lockPath, "abc123"); err != nil {
		t.Fatal(err)
	}
	if state, _ = CheckLock(lockPath, "abc123"); state != LockUpToDate {
		t.Errorf("same revision = %s, want %s", state, LockUpToDate)
	}
	if state, _ = CheckLock(lockPath, "def456"); state != LockStale {
		t.Errorf("different revision = %s, want %s", state, LockStale)
	}
}

// TestRotateBackups tests generation shifting and the keep limit
func TestRotateBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yml")

	for i, content := range []string{"one", "two", "three"} {
		if err := rotateBackups(path, 2); err != nil {
			t.Fatalf("rotate %d failed: %v", i, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := readFile(t, path); got != "three" {
		t.Errorf("current = %q, want three", got)
	}
	if got := readFile(t, path+".bak.1"); got != "two" {
		t.Errorf(".bak.1 = %q, want two", got)
	}
	if got := readFile(t, path+".bak.2"); got != "one" {
		t.Errorf(".bak.2 = %q, want one", got)
	}
	if _, err := os.Stat(path + ".bak.3"); !os.IsNotExist(err) {
		t.Error("rotation exceeded the keep limit")
	}
}

// TestRotateBackupsDisabled tests that zero keep leaves everything alone
func TestRotateBackupsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yml")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := rotateBackups(path, 0); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "content" {
		t.Error("disabled rotation moved the file")
	}
}
