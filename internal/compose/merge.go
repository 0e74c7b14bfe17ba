// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package compose

import (
	"github.com/knadh/koanf/maps"
)

// Merge overlays a fragment onto the document, section by section and
// recursively within each section:
//
//   - a key only in the fragment is added
//   - scalar values from the fragment win over existing values
//   - mapping values are merged key by key, recursively
//   - sequences are replaced wholesale, never element-merged
//
// The fragment's reserved declaration key is stripped first so it never
// leaks into merged output. The fragment itself is not modified.
func (d *Document) Merge(fragment *Document) {
	if fragment == nil || len(fragment.root) == 0 {
		return
	}

	incoming := maps.Copy(fragment.root)
	delete(incoming, RequiredServicesKey)

	maps.Merge(incoming, d.root)
}
