// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package envfile

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ipukeone/rogmar/internal/logging"
)

// TestMergeDuplicateWarningNamesBothSources tests the dropped-duplicate log line
func TestMergeDuplicateWarningNamesBothSources(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	defer logging.SetLogger(prev)

	local := Source{Name: "rogmar.env", Lines: []string{"REDIS_PORT=6380"}}
	redis := Source{Name: "template:redis", Lines: []string{"REDIS_PORT=6379"}}

	_, prov := Merge(local, redis)

	if prov.Duplicates() != 1 {
		t.Fatalf("duplicates = %d, want 1", prov.Duplicates())
	}
	out := buf.String()
	for _, want := range []string{
		"duplicate environment variable dropped",
		`"key":"REDIS_PORT"`,
		`"source":"template:redis"`,
		`"defined_in":"rogmar.env"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("warning output missing %q in %q", want, out)
		}
	}
}

// TestMergeFirstWriterWins tests that the earliest source owns each key
func TestMergeFirstWriterWins(t *testing.T) {
	local := Source{Name: "rogmar.env", Lines: []string{
		"REDIS_PORT=6380",
	}}
	redis := Source{Name: "template:redis", Lines: []string{
		"REDIS_PORT=6379",
		"REDIS_MAXMEMORY=256mb",
	}}

	lines, prov := Merge(local, redis)

	want := []string{
		"REDIS_PORT=6380",
		"REDIS_MAXMEMORY=256mb",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
	if got := prov.Source("REDIS_PORT"); got != "rogmar.env" {
		t.Errorf("REDIS_PORT provenance = %q, want rogmar.env", got)
	}
	if got := prov.Source("REDIS_MAXMEMORY"); got != "template:redis" {
		t.Errorf("REDIS_MAXMEMORY provenance = %q, want template:redis", got)
	}
}

// TestMergeEveryKeyOnce tests that no key appears twice across many sources
func TestMergeEveryKeyOnce(t *testing.T) {
	a := Source{Name: "a", Lines: []string{"DB_HOST=one", "DB_PORT=3306"}}
	b := Source{Name: "b", Lines: []string{"DB_HOST=two", "DB_NAME=app"}}
	c := Source{Name: "c", Lines: []string{"DB_PORT=5432", "DB_HOST=three"}}

	lines, prov := Merge(a, b, c)

	seen := make(map[string]int)
	for _, line := range lines {
		key, _, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		seen[key]++
	}
	for key, n := range seen {
		if n != 1 {
			t.Errorf("key %s emitted %d times", key, n)
		}
	}
	if prov.Len() != 3 {
		t.Errorf("provenance has %d keys, want 3", prov.Len())
	}
	if got := prov.Keys(); !reflect.DeepEqual(got, []string{"DB_HOST", "DB_PORT", "DB_NAME"}) {
		t.Errorf("key order = %v", got)
	}
}

// TestMergeCommentsAndBlanksPassThrough tests unconditional passthrough
func TestMergeCommentsAndBlanksPassThrough(t *testing.T) {
	a := Source{Name: "a", Lines: []string{
		"# redis tuning",
		"",
		"REDIS_PORT=6379",
	}}
	b := Source{Name: "b", Lines: []string{
		"# redis tuning",
		"REDIS_PORT=6380",
	}}

	lines, _ := Merge(a, b)

	want := []string{
		"# redis tuning",
		"",
		"REDIS_PORT=6379",
		"# redis tuning", // comments are never deduplicated
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
}

// TestMergeNormalizesEquals tests whitespace normalization around '='
func TestMergeNormalizesEquals(t *testing.T) {
	src := Source{Name: "a", Lines: []string{
		"KEY = value",
		"OTHER =value with spaces  ",
		"  INDENTED= x",
	}}

	lines, _ := Merge(src)

	want := []string{
		"KEY=value",
		"OTHER=value with spaces  ",
		"INDENTED=x",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
}

// TestMergeLineWithoutEquals tests that non-assignment lines pass through
func TestMergeLineWithoutEquals(t *testing.T) {
	src := Source{Name: "a", Lines: []string{"export FOO"}}

	lines, prov := Merge(src)

	if !reflect.DeepEqual(lines, []string{"export FOO"}) {
		t.Errorf("lines = %v", lines)
	}
	if prov.Len() != 0 {
		t.Errorf("non-assignment line must not register a key")
	}
}

// TestLoadSourceAbsentFile tests that a template without env defaults is empty
func TestLoadSourceAbsentFile(t *testing.T) {
	src, err := LoadSource("template:redis", filepath.Join(t.TempDir(), "nope.env"))
	if err != nil {
		t.Fatalf("LoadSource of absent file should not error, got: %v", err)
	}
	if len(src.Lines) != 0 {
		t.Errorf("expected no lines, got %v", src.Lines)
	}
	if src.Name != "template:redis" {
		t.Errorf("name = %q", src.Name)
	}
}

// TestLoadSourceAndWriteFileRoundTrip tests file IO helpers
func TestLoadSourceAndWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "# header\nKEY=value\n\nOTHER=x\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := LoadSource("test", path)
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	if len(src.Lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(src.Lines), src.Lines)
	}

	out := filepath.Join(dir, "merged.env")
	lines, _ := Merge(src)
	if err := WriteFile(out, lines); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("round trip changed content:\n got: %q\nwant: %q", data, content)
	}
}
