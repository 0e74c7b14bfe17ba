// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package execx runs external command-line tools for the packages that wrap
// them (database engines, docker compose). Tools are opaque: only the exit
// code and captured stderr are interpreted.
package execx

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ipukeone/rogmar/internal/errdefs"
	"github.com/ipukeone/rogmar/internal/logging"
)

// Cmd describes one external tool invocation.
type Cmd struct {
	// Name is the binary to run, resolved via PATH.
	Name string

	// Args are the arguments, excluding the binary name.
	Args []string

	// Env entries appended to the inherited environment, "KEY=value" form.
	Env []string

	// Dir is the working directory. Empty means inherit.
	Dir string

	// Stdout receives the tool's standard output when non-nil. Tools that
	// stream backup data (pg_dump, mariadb-dump) write here.
	Stdout io.Writer
}

// Runner executes external tools. The indirection exists so the backup and
// assembler packages can be tested without the real binaries installed.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) error
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewRunner returns a Runner that executes real processes.
func NewRunner() Runner {
	return ExecRunner{}
}

// stderrTailLimit bounds how much captured stderr ends up in error messages.
const stderrTailLimit = 4096

// Run executes the tool and waits for it. A non-zero exit or start failure
// yields a ToolFailureError carrying the tail of stderr.
func (ExecRunner) Run(ctx context.Context, cmd Cmd) error {
	start := time.Now()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // G204: tool names come from engine definitions, not user input
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	var stderr bytes.Buffer
	c.Stderr = &stderr
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}

	err := c.Run()

	logging.Debug().
		Str("tool", cmd.Name).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("External tool finished")

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errdefs.WrapToolFailure(ctxErr, "%s interrupted", cmd.Name)
		}
		return errdefs.WrapToolFailure(err, "%s failed: %s", cmd.Name, stderrTail(stderr.String()))
	}
	return nil
}

// stderrTail returns the trailing portion of captured stderr, trimmed.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no stderr output"
	}
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
