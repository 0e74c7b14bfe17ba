// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package compose models the merged deployment descriptor.
//
// A Document is a YAML mapping with four well-known top-level sections
// (services, volumes, secrets, networks), each a mapping of name to
// definition. Fragments fetched from the template repository are merged
// into a project's descriptor section by section; see Merge for the exact
// overlay semantics.
//
// The reserved key "x-required-services" declares which templates a project
// wants. It only ever appears in the project's primary descriptor and is
// stripped from fragments before merging so it cannot leak into the output.
package compose

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ipukeone/rogmar/internal/errdefs"
)

// RequiredServicesKey is the reserved declaration key listing the service
// templates a project requires.
const RequiredServicesKey = "x-required-services"

// SectionNames lists the four top-level descriptor sections in output order.
var SectionNames = []string{"services", "volumes", "secrets", "networks"}

// Document is a deployment descriptor or a template fragment of one.
type Document struct {
	root map[string]any
}

// New returns an empty document.
func New() *Document {
	return &Document{root: make(map[string]any)}
}

// Parse decodes a YAML descriptor. An empty input yields an empty document.
func Parse(data []byte) (*Document, error) {
	root := make(map[string]any)
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errdefs.WrapConfig(err, "invalid descriptor YAML")
	}
	if root == nil {
		root = make(map[string]any)
	}
	return &Document{root: root}, nil
}

// Load reads a descriptor file. A missing file is treated as an empty
// document, so a template without a compose fragment merges as a no-op.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from project configuration
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errdefs.WrapConfig(err, "failed to read descriptor %s", path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, errdefs.WrapConfig(err, "descriptor %s", path)
	}
	return doc, nil
}

// Bytes encodes the document as YAML. Map keys are emitted in sorted order
// by the encoder, so encoding the same document twice is byte-identical.
func (d *Document) Bytes() ([]byte, error) {
	return yaml.Marshal(d.root)
}

// WriteFile writes the encoded document to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec // Descriptor is world-readable by design
}

// IsEmpty reports whether the document has no content.
func (d *Document) IsEmpty() bool {
	return len(d.root) == 0
}

// Section returns the named top-level section, or nil if absent or not a
// mapping.
func (d *Document) Section(name string) map[string]any {
	m, _ := d.root[name].(map[string]any)
	return m
}

// SectionKeys returns the sorted keys of the named section.
func (d *Document) SectionKeys(name string) []string {
	section := d.Section(name)
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RequiredServices reads the reserved declaration key from the primary
// descriptor. A missing or empty list is a ConfigError: without it the
// assembler has nothing to resolve.
func (d *Document) RequiredServices() ([]string, error) {
	raw, ok := d.root[RequiredServicesKey]
	if !ok {
		return nil, errdefs.Config("descriptor declares no %s", RequiredServicesKey)
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, errdefs.Config("%s must be a list of service names", RequiredServicesKey)
	}

	names := make([]string, 0, len(list))
	for _, item := range list {
		name, ok := item.(string)
		if !ok || name == "" {
			return nil, errdefs.Config("%s entries must be non-empty strings", RequiredServicesKey)
		}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, errdefs.Config("%s list is empty", RequiredServicesKey)
	}
	return names, nil
}
