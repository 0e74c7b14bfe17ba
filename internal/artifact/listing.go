// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package artifact

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Entry is one discovered artifact on disk.
type Entry struct {
	ID ID

	// Path is the absolute artifact path (directory or file).
	Path string

	// ModTime drives retention decisions.
	ModTime time.Time

	// Archived marks the single-archive (.zst tarball) variant.
	Archived bool
}

// List discovers all artifacts under root. Entries whose names do not parse
// are skipped; the three kind subtrees and root-level archives are all
// scanned. A missing root or subtree yields no entries, not an error.
func List(root string) ([]Entry, error) {
	var entries []Entry

	collect := func(dir string, wantDir bool, parse func(string) (ID, bool), archived bool) error {
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, de := range dirEntries {
			if de.IsDir() != wantDir {
				continue
			}
			id, ok := parse(de.Name())
			if !ok {
				continue
			}
			info, err := de.Info()
			if err != nil {
				continue
			}
			entries = append(entries, Entry{
				ID:       id,
				Path:     filepath.Join(dir, de.Name()),
				ModTime:  info.ModTime(),
				Archived: archived,
			})
		}
		return nil
	}

	if err := collect(filepath.Join(root, "full"), true, ParseFullDirName, false); err != nil {
		return nil, err
	}
	if err := collect(filepath.Join(root, "incremental"), true, ParseIncrementalDirName, false); err != nil {
		return nil, err
	}
	if err := collect(filepath.Join(root, "dumps"), false, ParseDumpFileName, false); err != nil {
		return nil, err
	}
	if err := collect(root, false, ParseArchiveName, true); err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

// sortEntries orders entries by identity: fulls before their incrementals,
// ascending by date, sequence, and incremental sequence.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].ID, entries[j].ID
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		if a.Kind != b.Kind {
			// Full sorts before its incrementals.
			return a.Kind == KindFull
		}
		return a.IncrSeq < b.IncrSeq
	})
}

// Fulls filters the full artifacts from entries, preserving order.
func Fulls(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.ID.Kind == KindFull {
			out = append(out, e)
		}
	}
	return out
}

// LatestFull returns the most recent full artifact, or nil if none exists.
func LatestFull(entries []Entry) *Entry {
	fulls := Fulls(entries)
	if len(fulls) == 0 {
		return nil
	}
	return &fulls[len(fulls)-1]
}

// IncrementalsFor returns the incrementals built on base, in ascending
// IncrSeq order.
func IncrementalsFor(base ID, entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.ID.Kind == KindIncremental && e.ID.SameBase(base) {
			out = append(out, e)
		}
	}
	return out
}
