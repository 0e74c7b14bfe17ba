// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package artifact

import (
	"time"

	"github.com/ipukeone/rogmar/internal/errdefs"
)

// Chain is the ordered restore sequence: one full artifact followed by its
// incrementals in ascending sequence order. Constructed fresh per restore
// attempt, never persisted.
type Chain []Entry

// Full returns the chain's base full artifact.
func (c Chain) Full() *Entry {
	if len(c) == 0 {
		return nil
	}
	return &c[0]
}

// Incrementals returns the chain members after the base.
func (c Chain) Incrementals() []Entry {
	if len(c) <= 1 {
		return nil
	}
	return c[1:]
}

// ResolveRestoreChain selects the most recent full artifact and the
// complete, gap-free sequence of incrementals referencing it.
//
// A gap in the middle of the incremental sequence (say _02 exists but _01
// does not) is a fatal ChainInconsistentError, never a silent truncation:
// applying deltas out of order would corrupt the restored state. A set of
// entries with no full artifact resolves to an empty chain, which callers
// treat as an informational no-op.
func ResolveRestoreChain(entries []Entry) (Chain, error) {
	full := LatestFull(entries)
	if full == nil {
		return nil, nil
	}

	chain := Chain{*full}
	for i, incr := range IncrementalsFor(full.ID, entries) {
		want := i + 1
		if incr.ID.IncrSeq != want {
			return nil, errdefs.ChainInconsistent(
				"incremental sequence for %s has a gap: want _%02d, found _%02d",
				full.ID, want, incr.ID.IncrSeq)
		}
		chain = append(chain, incr)
	}
	return chain, nil
}

// NextFull returns the identity for a new full backup: today's date with
// the next two-digit sequence scoped to that date.
func NextFull(now time.Time, entries []Entry) ID {
	date := DateOf(now)
	seq := 0
	for _, e := range Fulls(entries) {
		if e.ID.Date == date && e.ID.Seq > seq {
			seq = e.ID.Seq
		}
	}
	return ID{Kind: KindFull, Date: date, Seq: seq + 1}
}

// NextIncremental returns the identity for a new incremental on top of the
// base full artifact, continuing its contiguous sequence.
func NextIncremental(base ID, entries []Entry) ID {
	incrSeq := 0
	for _, e := range IncrementalsFor(base, entries) {
		if e.ID.IncrSeq > incrSeq {
			incrSeq = e.ID.IncrSeq
		}
	}
	return ID{Kind: KindIncremental, Date: base.Date, Seq: base.Seq, IncrSeq: incrSeq + 1}
}

// DeltaBase returns the entry a new incremental should diff against: the
// highest incremental already built on base, or base itself.
func DeltaBase(base Entry, entries []Entry) Entry {
	incrs := IncrementalsFor(base.ID, entries)
	if len(incrs) == 0 {
		return base
	}
	return incrs[len(incrs)-1]
}
