// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ipukeone/rogmar/internal/assembler"
)

func newAssembleCmd() *cobra.Command {
	var opts assembler.Options

	cmd := &cobra.Command{
		Use:   "assemble [project-dir]",
		Short: "Merge remote service templates into the project's compose outputs",
		Long: "assemble reads the project's primary descriptor, fetches the declared\n" +
			"service templates at the configured ref, copies their assets on first\n" +
			"run (or with --force), and merges everything into docker-compose.yml\n" +
			"and .env. A lock file pins the template revision.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir := "."
			if len(args) == 1 {
				projectDir = args[0]
			}
			projectDir, err := filepath.Abs(projectDir)
			if err != nil {
				return err
			}

			res, err := newAssembler().Assemble(cmd.Context(), projectDir, opts)
			if err != nil {
				return err
			}

			printAssembleResult(res, opts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "refresh local template copies even when present")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&opts.DeleteVolumes, "delete-volumes", false, "remove the project's named volumes after assembly")
	return cmd
}

func printAssembleResult(res *assembler.Result, opts assembler.Options) {
	prefix := ""
	if opts.DryRun {
		prefix = "would be "
	}
	fmt.Fprintf(os.Stdout, "revision: %s (%s)\n", res.Revision, res.LockState)
	for _, asset := range res.CopiedAssets {
		fmt.Fprintf(os.Stdout, "  %scopied: %s\n", prefix, asset)
	}
	if res.DescriptorChanged {
		fmt.Fprintf(os.Stdout, "  %supdated: %s\n", prefix, assembler.OutputDescriptorName)
	}
	if res.EnvChanged {
		fmt.Fprintf(os.Stdout, "  %supdated: %s\n", prefix, assembler.OutputEnvName)
	}
	if res.DuplicateKeys > 0 {
		fmt.Fprintf(os.Stdout, "  duplicate env keys dropped: %d\n", res.DuplicateKeys)
	}
}
