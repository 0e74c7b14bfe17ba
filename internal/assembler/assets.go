// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package assembler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ipukeone/rogmar/internal/gitfetch"
	"github.com/ipukeone/rogmar/internal/logging"
)

// CopyServiceAssets copies one service's template assets into the project:
// the descriptor fragment and env defaults (overwritten only when forced),
// plus nested scripts/ and secrets/ directories, whose existing files are
// never overwritten — they may hold user customizations or generated
// credentials.
//
// Any copy failure is fatal to the whole assembly; the lock is not advanced
// past a partially copied state. In dry-run mode nothing is written and the
// returned list names what would be copied.
func (a *Assembler) CopyServiceAssets(snap *gitfetch.Snapshot, svc, projectDir string, opts Options) ([]string, error) {
	templateDir := snap.ServicePath(svc)
	var copied []string

	plan := []struct {
		src       string
		dst       string
		overwrite bool
	}{
		{filepath.Join(templateDir, templateFragmentName), filepath.Join(FragmentDirName, svc+".yml"), opts.Force},
		{filepath.Join(templateDir, templateEnvName), filepath.Join(EnvDirName, svc+".env"), opts.Force},
	}
	for _, p := range plan {
		done, err := copyFileOnce(p.src, filepath.Join(projectDir, p.dst), p.overwrite, opts.DryRun)
		if err != nil {
			return nil, err
		}
		if done {
			copied = append(copied, p.dst)
		}
	}

	for _, sub := range []string{"scripts", "secrets"} {
		subCopied, err := mergeTreeOnce(filepath.Join(templateDir, sub), filepath.Join(projectDir, sub), sub, opts.DryRun)
		if err != nil {
			return nil, err
		}
		copied = append(copied, subCopied...)
	}

	if len(copied) > 0 {
		logging.Debug().
			Str("service", svc).
			Strs("assets", copied).
			Msg("Copied template assets")
	}
	return copied, nil
}

// copyFileOnce copies src to dst unless dst already exists and overwrite is
// false. A missing src is fine: not every template ships every asset.
// Reports whether a copy happened (or would happen, for a dry run).
func copyFileOnce(src, dst string, overwrite, dryRun bool) (bool, error) {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return false, nil
		}
	}
	if dryRun {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	if err := copyFileContents(src, dst); err != nil {
		return false, fmt.Errorf("failed to copy %s: %w", dst, err)
	}
	return true, nil
}

// mergeTreeOnce copies every file under srcDir into dstDir, never
// overwriting an existing destination file. Returns the project-relative
// paths copied, prefixed with relPrefix.
func mergeTreeOnce(srcDir, dstDir, relPrefix string, dryRun bool) ([]string, error) {
	if _, err := os.Stat(srcDir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var copied []string
	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dstDir, rel)
		if d.IsDir() {
			if dryRun {
				return nil
			}
			return os.MkdirAll(dst, 0o750)
		}
		if _, err := os.Stat(dst); err == nil {
			return nil // Existing files are user territory
		}
		if !dryRun {
			if err := copyFileContents(path, dst); err != nil {
				return fmt.Errorf("failed to copy %s: %w", dst, err)
			}
		}
		copied = append(copied, filepath.Join(relPrefix, rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copied, nil
}

// copyFileContents copies one file preserving its mode.
func copyFileContents(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src) //nolint:gosec // G304: template paths from the fetched snapshot
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort cleanup

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()) //nolint:gosec // G304: destination inside the project directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck // Best effort cleanup on error
		return err
	}
	return out.Close()
}
