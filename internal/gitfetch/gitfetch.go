// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package gitfetch retrieves the template subtree from a remote Git
// repository without pulling its full history.
//
// A fetch is a depth-1, single-branch clone of one ref into a throwaway
// directory with no initial checkout; a sparse checkout then materializes
// only the requested subpath on disk. Transfer granularity note: the pack
// negotiation still downloads the commit's full tree and blob objects (the
// protocol has no path filter here), so sparseness bounds what lands in
// the worktree, not what crosses the wire. The resolved commit hash
// identifies the snapshot and feeds the assembler's lockfile comparison.
// Fetch makes exactly one attempt: network or auth failures surface
// immediately as a FetchError with no retry.
package gitfetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/ipukeone/rogmar/internal/errdefs"
	"github.com/ipukeone/rogmar/internal/logging"
)

// Snapshot is a narrow checkout of the template subtree at one revision.
type Snapshot struct {
	// Revision is the resolved commit hash the snapshot was taken at.
	Revision string

	// Dir is the temporary clone root. Removed by Close.
	Dir string

	// Subpath is the template subtree below Dir.
	Subpath string
}

// Path returns the absolute path of the template subtree.
func (s *Snapshot) Path() string {
	return filepath.Join(s.Dir, s.Subpath)
}

// ServicePath returns the directory for one service template.
func (s *Snapshot) ServicePath(name string) string {
	return filepath.Join(s.Path(), name)
}

// Close removes the temporary clone. Safe on a nil snapshot.
func (s *Snapshot) Close() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	return os.RemoveAll(s.Dir)
}

// Fetcher fetches template snapshots. The function type makes the network
// dependency injectable for assembler tests.
type Fetcher func(ctx context.Context, remoteURL, ref, subpath string) (*Snapshot, error)

// Fetch clones the single ref at depth 1 and verifies the subpath exists.
// ref may be a branch or tag name; an empty ref uses the remote's default
// branch. The caller owns the returned snapshot and must Close it.
func Fetch(ctx context.Context, remoteURL, ref, subpath string) (*Snapshot, error) {
	dir, err := os.MkdirTemp("", "rogmar-templates-*")
	if err != nil {
		return nil, errdefs.WrapFetch(err, "failed to create clone directory")
	}

	repo, err := cloneNarrow(ctx, dir, remoteURL, ref, subpath)
	if err != nil {
		os.RemoveAll(dir) //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		os.RemoveAll(dir) //nolint:errcheck // Best effort cleanup on error
		return nil, errdefs.WrapFetch(err, "failed to resolve revision for %s", remoteURL)
	}

	snap := &Snapshot{
		Revision: head.Hash().String(),
		Dir:      dir,
		Subpath:  subpath,
	}

	if info, err := os.Stat(snap.Path()); err != nil || !info.IsDir() {
		snap.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, errdefs.NotFound("subpath %q does not exist at %s@%s", subpath, remoteURL, snap.Revision)
	}

	logging.Debug().
		Str("remote", remoteURL).
		Str("ref", ref).
		Str("revision", snap.Revision).
		Msg("fetched template snapshot")

	return snap, nil
}

// cloneNarrow performs the depth-1 single-branch clone without a checkout,
// trying the ref as a branch first and as a tag second, then sparsely
// checks out only the template subpath.
func cloneNarrow(ctx context.Context, dir, remoteURL, ref, subpath string) (*git.Repository, error) {
	var lastErr error
	for _, name := range referenceCandidates(ref) {
		repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           remoteURL,
			ReferenceName: name,
			SingleBranch:  true,
			Depth:         1,
			Tags:          git.NoTags,
			NoCheckout:    true,
		})
		if err == nil {
			if err := sparseCheckout(repo, subpath); err != nil {
				return nil, err
			}
			return repo, nil
		}
		lastErr = err

		// The directory must be empty for the next attempt.
		if cleanErr := emptyDir(dir); cleanErr != nil {
			return nil, errdefs.WrapFetch(cleanErr, "failed to reset clone directory")
		}
	}
	return nil, errdefs.WrapFetch(lastErr, "failed to clone %s", remoteURL)
}

// sparseCheckout materializes only subpath from the cloned HEAD.
func sparseCheckout(repo *git.Repository, subpath string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return errdefs.WrapFetch(err, "failed to open worktree")
	}
	err = wt.Checkout(&git.CheckoutOptions{
		SparseCheckoutDirectories: []string{subpath},
	})
	if err != nil {
		return errdefs.WrapFetch(err, "failed to check out %q", subpath)
	}
	return nil
}

// referenceCandidates returns the reference names to try for a ref string.
func referenceCandidates(ref string) []plumbing.ReferenceName {
	if ref == "" {
		// Default branch: let the remote decide.
		return []plumbing.ReferenceName{""}
	}
	return []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}
}

// emptyDir removes all entries of dir, keeping dir itself.
func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
