// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package artifact defines typed backup artifact identities and the
// discovery, chain-resolution, and prune-selection logic built on them.
//
// Artifacts live under a root directory in three subtrees:
//
//	full/<YYYYMMDD>_<NN>/                    engine-native full backup
//	incremental/<YYYYMMDD>_<NN>_<MM>/        delta against one full
//	dumps/<name>_<YYYYMMDD>_<HHMMSS>.sql.gz  logical dump (.zst variant too)
//
// The single-archive variant stores a full or incremental as one compressed
// tarball at the root: full_<date>_<NN>.zst, incremental_<date>_<NN>_<MM>.zst.
//
// Identity is typed (kind, date, sequence numbers), so chain validation is
// a property of parsed data rather than of directory-name string matching.
package artifact

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Kind is the artifact kind.
type Kind string

const (
	// KindFull is a complete point-in-time copy of the database files.
	KindFull Kind = "full"

	// KindIncremental is a delta relative to a prior full or incremental.
	KindIncremental Kind = "incremental"

	// KindDump is a logical SQL export of one database.
	KindDump Kind = "dump"
)

// ID identifies one backup artifact.
type ID struct {
	// Kind of the artifact.
	Kind Kind

	// Date stamp, YYYYMMDD. Set for every kind.
	Date string

	// Seq is the two-digit full-backup sequence, scoped to Date.
	// Set for full and incremental artifacts.
	Seq int

	// IncrSeq is the two-digit incremental sequence on top of the base
	// full artifact. Set for incremental artifacts only.
	IncrSeq int

	// Name is the database name. Set for dump artifacts only.
	Name string

	// Stamp is the time of day, HHMMSS. Set for dump artifacts only.
	Stamp string
}

// String renders the canonical artifact name, e.g. "full_20250101_01".
func (id ID) String() string {
	switch id.Kind {
	case KindFull:
		return fmt.Sprintf("full_%s_%02d", id.Date, id.Seq)
	case KindIncremental:
		return fmt.Sprintf("incremental_%s_%02d_%02d", id.Date, id.Seq, id.IncrSeq)
	case KindDump:
		return fmt.Sprintf("%s_%s_%s", id.Name, id.Date, id.Stamp)
	default:
		return "unknown"
	}
}

// DirName renders the directory name used inside the kind subtree,
// e.g. "20250101_01" under full/.
func (id ID) DirName() string {
	switch id.Kind {
	case KindFull:
		return fmt.Sprintf("%s_%02d", id.Date, id.Seq)
	case KindIncremental:
		return fmt.Sprintf("%s_%02d_%02d", id.Date, id.Seq, id.IncrSeq)
	default:
		return id.String()
	}
}

// Base returns the full artifact identity an incremental builds on.
func (id ID) Base() ID {
	return ID{Kind: KindFull, Date: id.Date, Seq: id.Seq}
}

// SameBase reports whether two identities share the same base full artifact.
func (id ID) SameBase(other ID) bool {
	return id.Date == other.Date && id.Seq == other.Seq
}

var (
	fullDirRe = regexp.MustCompile(`^(\d{8})_(\d{2})$`)
	incrDirRe = regexp.MustCompile(`^(\d{8})_(\d{2})_(\d{2})$`)
	dumpRe    = regexp.MustCompile(`^(.+)_(\d{8})_(\d{6})\.sql\.(?:gz|zst)$`)
	fullArcRe = regexp.MustCompile(`^full_(\d{8})_(\d{2})\.zst$`)
	incrArcRe = regexp.MustCompile(`^incremental_(\d{8})_(\d{2})_(\d{2})\.zst$`)
)

// ParseFullDirName parses a directory name under full/.
func ParseFullDirName(name string) (ID, bool) {
	m := fullDirRe.FindStringSubmatch(name)
	if m == nil {
		return ID{}, false
	}
	seq, _ := strconv.Atoi(m[2]) //nolint:errcheck // Regexp guarantees digits
	return ID{Kind: KindFull, Date: m[1], Seq: seq}, true
}

// ParseIncrementalDirName parses a directory name under incremental/.
func ParseIncrementalDirName(name string) (ID, bool) {
	m := incrDirRe.FindStringSubmatch(name)
	if m == nil {
		return ID{}, false
	}
	seq, _ := strconv.Atoi(m[2])     //nolint:errcheck // Regexp guarantees digits
	incrSeq, _ := strconv.Atoi(m[3]) //nolint:errcheck // Regexp guarantees digits
	return ID{Kind: KindIncremental, Date: m[1], Seq: seq, IncrSeq: incrSeq}, true
}

// ParseDumpFileName parses a file name under dumps/.
func ParseDumpFileName(name string) (ID, bool) {
	m := dumpRe.FindStringSubmatch(name)
	if m == nil {
		return ID{}, false
	}
	return ID{Kind: KindDump, Name: m[1], Date: m[2], Stamp: m[3]}, true
}

// ParseArchiveName parses a single-archive artifact name at the root.
func ParseArchiveName(name string) (ID, bool) {
	if m := fullArcRe.FindStringSubmatch(name); m != nil {
		seq, _ := strconv.Atoi(m[2]) //nolint:errcheck // Regexp guarantees digits
		return ID{Kind: KindFull, Date: m[1], Seq: seq}, true
	}
	if m := incrArcRe.FindStringSubmatch(name); m != nil {
		seq, _ := strconv.Atoi(m[2])     //nolint:errcheck // Regexp guarantees digits
		incrSeq, _ := strconv.Atoi(m[3]) //nolint:errcheck // Regexp guarantees digits
		return ID{Kind: KindIncremental, Date: m[1], Seq: seq, IncrSeq: incrSeq}, true
	}
	return ID{}, false
}

// DateOf formats a time as an artifact date stamp.
func DateOf(t time.Time) string {
	return t.Format("20060102")
}

// StampOf formats a time as a dump time-of-day stamp.
func StampOf(t time.Time) string {
	return t.Format("150405")
}
