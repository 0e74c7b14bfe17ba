// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package compose

import (
	"github.com/go-playground/validator/v10"

	"github.com/ipukeone/rogmar/internal/errdefs"
)

// validate is shared; validator instances cache struct metadata and are
// safe for concurrent use.
var validate = validator.New()

// ValidateServiceName checks that a service template name is usable as a
// compose service key and as a directory name in the template tree.
// Compose service names follow the same shape as DNS labels.
func ValidateServiceName(name string) error {
	if err := validate.Var(name, "required,hostname_rfc1123,max=63"); err != nil {
		return errdefs.Config("invalid service name %q", name)
	}
	return nil
}

// ValidateServiceNames checks a resolved required-services list.
func ValidateServiceNames(names []string) error {
	for _, name := range names {
		if err := ValidateServiceName(name); err != nil {
			return err
		}
	}
	return nil
}
