// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package main is the rogmar command line entry point.
//
// rogmar assembles Docker Compose stacks from remote service templates and
// manages database backup and restore chains for the services it deploys.
// One binary carries both concerns:
//
//	rogmar assemble <project-dir>   merge templates into compose outputs
//	rogmar backup {full|incremental|dump}
//	rogmar restore                  restore the latest backup chain
//	rogmar prune                    delete artifacts past retention
//	rogmar daemon                   scheduler + restore watcher + HTTP
//	rogmar version
//
// Configuration is layered (defaults, then an optional YAML file, then
// environment variables) and shared by every subcommand. Fatal errors print
// a single prefixed diagnostic line and exit non-zero.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rogmar: %v\n", err)
		stop()
		os.Exit(1)
	}
}
