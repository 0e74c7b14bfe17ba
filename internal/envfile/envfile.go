// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package envfile merges flat key=value environment files.
//
// Sources are scanned in priority order: the project-local override file
// first, then one file per required template in resolution order. The first
// source to define a key owns it; later definitions of the same key are
// dropped with a warning naming both sources. Comments and blank lines pass
// through from whichever file is being scanned, so the merged output keeps
// each template's documentation next to its variables.
//
// Provenance is an explicit accumulator returned alongside the merged
// lines, not package state, so callers and tests can inspect which source
// won each key.
package envfile

import (
	"os"
	"strings"

	"github.com/ipukeone/rogmar/internal/logging"
)

// Source is one environment file queued for merging.
type Source struct {
	// Name identifies the source in duplicate warnings, e.g. "rogmar.env"
	// or "template:redis".
	Name string

	// Lines holds the raw file lines, without trailing newlines.
	Lines []string
}

// LoadSource reads an environment file into a Source. A missing file yields
// an empty source: templates are not required to ship env defaults.
func LoadSource(name, path string) (Source, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from project configuration
	if err != nil {
		if os.IsNotExist(err) {
			return Source{Name: name}, nil
		}
		return Source{}, err
	}

	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return Source{Name: name}, nil
	}
	return Source{Name: name, Lines: strings.Split(content, "\n")}, nil
}

// Provenance records, in first-seen order, which source defined each key.
type Provenance struct {
	keys       []string
	source     map[string]string
	duplicates int
}

// newProvenance returns an empty accumulator.
func newProvenance() *Provenance {
	return &Provenance{source: make(map[string]string)}
}

// record registers a key for a source. Returns false and the original
// source name if the key was already taken.
func (p *Provenance) record(key, source string) (string, bool) {
	if prev, ok := p.source[key]; ok {
		p.duplicates++
		return prev, false
	}
	p.keys = append(p.keys, key)
	p.source[key] = source
	return "", true
}

// Keys returns the merged keys in first-seen order.
func (p *Provenance) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Source returns the source that defined key, or "" if the key is unknown.
func (p *Provenance) Source(key string) string {
	return p.source[key]
}

// Len returns the number of distinct keys.
func (p *Provenance) Len() int {
	return len(p.keys)
}

// Duplicates returns how many definitions were dropped as duplicates.
func (p *Provenance) Duplicates() int {
	return p.duplicates
}

// Merge concatenates the sources in the given order, emitting each key
// exactly once. Duplicate definitions are dropped with a warning; comments
// and blank lines always pass through. Whitespace around the first '=' is
// normalized away on emitted variable lines.
func Merge(sources ...Source) ([]string, *Provenance) {
	var lines []string
	prov := newProvenance()

	for _, src := range sources {
		for _, line := range src.Lines {
			trimmed := strings.TrimSpace(line)

			// Comments and blanks pass through from the file being scanned.
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				lines = append(lines, line)
				continue
			}

			key, value, found := strings.Cut(line, "=")
			if !found {
				// Not a variable assignment; keep it verbatim.
				lines = append(lines, line)
				continue
			}

			key = strings.TrimSpace(key)
			value = strings.TrimLeft(value, " \t")

			if original, ok := prov.record(key, src.Name); !ok {
				logging.Warn().
					Str("key", key).
					Str("source", src.Name).
					Str("defined_in", original).
					Msg("duplicate environment variable dropped")
				continue
			}

			lines = append(lines, key+"="+value)
		}
	}

	return lines, prov
}

// Render joins merged lines into file content with a trailing newline.
func Render(lines []string) []byte {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	return []byte(content)
}

// WriteFile writes merged lines to path.
func WriteFile(path string, lines []string) error {
	return os.WriteFile(path, Render(lines), 0o644) //nolint:gosec // Env file is shared with compose
}
