// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package gitfetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ipukeone/rogmar/internal/errdefs"
)

// initTemplateRepo builds a local repository with a templates subtree and
// an unrelated sibling tree, returning its path and head revision.
func initTemplateRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}

	files := map[string]string{
		"templates/redis/compose.yml": "services:\n  redis:\n    image: redis:7\n",
		"templates/redis/.env":        "REDIS_PORT=6379\n",
		"unrelated/notes.txt":         "not a template\n",
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

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.AddGlob("."); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := wt.Commit("add templates", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.invalid", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return dir, hash.String()
}

// TestFetchMaterializesOnlySubpath tests the sparse checkout boundary
func TestFetchMaterializesOnlySubpath(t *testing.T) {
	repoDir, rev := initTemplateRepo(t)

	snap, err := Fetch(context.Background(), repoDir, "", "templates")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer snap.Close() //nolint:errcheck // Best effort cleanup

	if snap.Revision != rev {
		t.Errorf("revision = %s, want %s", snap.Revision, rev)
	}
	if _, err := os.Stat(filepath.Join(snap.ServicePath("redis"), "compose.yml")); err != nil {
		t.Errorf("template subtree not materialized: %v", err)
	}
	if _, err := os.Stat(filepath.Join(snap.Dir, "unrelated")); !os.IsNotExist(err) {
		t.Error("tree outside the subpath was materialized")
	}
}

// TestFetchMissingSubpath tests the NotFoundError for an absent subtree
func TestFetchMissingSubpath(t *testing.T) {
	repoDir, _ := initTemplateRepo(t)

	snap, err := Fetch(context.Background(), repoDir, "", "no-such-subtree")
	if snap != nil {
		snap.Close() //nolint:errcheck // Best effort cleanup
	}
	if !errdefs.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got: %v", err)
	}
}

// TestFetchUnreachableRemote tests the FetchError on a bad remote
func TestFetchUnreachableRemote(t *testing.T) {
	_, err := Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.git"), "main", "templates")
	if !errdefs.IsFetch(err) {
		t.Errorf("expected FetchError, got: %v", err)
	}
}

// TestSnapshotPaths tests subtree path construction
func TestSnapshotPaths(t *testing.T) {
	snap := &Snapshot{
		Revision: "abc123",
		Dir:      "/tmp/clone",
		Subpath:  "templates",
	}

	if got := snap.Path(); got != filepath.Join("/tmp/clone", "templates") {
		t.Errorf("Path() = %q", got)
	}
	if got := snap.ServicePath("redis"); got != filepath.Join("/tmp/clone", "templates", "redis") {
		t.Errorf("ServicePath() = %q", got)
	}
}

// TestSnapshotClose tests temp directory removal
func TestSnapshotClose(t *testing.T) {
	dir, err := os.MkdirTemp("", "gitfetch-test-*")
	if err != nil {
		t.Fatal(err)
	}

	snap := &Snapshot{Dir: dir}
	if err := snap.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("clone directory still present after Close")
	}
}

// TestSnapshotCloseNil tests that a nil snapshot closes safely
func TestSnapshotCloseNil(t *testing.T) {
	var snap *Snapshot
	if err := snap.Close(); err != nil {
		t.Errorf("nil Close returned %v", err)
	}
}

// TestReferenceCandidates tests branch/tag fallback ordering
func TestReferenceCandidates(t *testing.T) {
	refs := referenceCandidates("main")
	if len(refs) != 2 {
		t.Fatalf("expected branch and tag candidates, got %d", len(refs))
	}
	if refs[0].String() != "refs/heads/main" {
		t.Errorf("first candidate = %q, want branch ref", refs[0])
	}
	if refs[1].String() != "refs/tags/main" {
		t.Errorf("second candidate = %q, want tag ref", refs[1])
	}

	if defaults := referenceCandidates(""); len(defaults) != 1 || defaults[0] != "" {
		t.Errorf("empty ref should yield the remote default, got %v", defaults)
	}
}
