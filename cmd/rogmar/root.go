// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ipukeone/rogmar/internal/assembler"
	"github.com/ipukeone/rogmar/internal/backup"
	"github.com/ipukeone/rogmar/internal/config"
	"github.com/ipukeone/rogmar/internal/execx"
	"github.com/ipukeone/rogmar/internal/logging"
)

// cfg is populated by the root command's PersistentPreRunE and read by
// every subcommand.
var cfg *config.Config

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "rogmar",
		Short: "Compose stack templating and database backup orchestration",
		Long: "rogmar merges remote Docker Compose service templates into per-project\n" +
			"deployment descriptors and manages backup/restore chains for the\n" +
			"databases those stacks run.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				os.Setenv(config.ConfigPathEnvVar, configFile) //nolint:errcheck // Setenv cannot fail here
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: os.Stderr,
			})
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the configuration file")

	root.AddCommand(
		newAssembleCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newPruneCmd(),
		newDaemonCmd(),
		newVersionCmd(),
	)
	return root
}

// newBackupManager wires the configured engine into a manager. Subcommands
// that touch backups all go through here.
func newBackupManager() (*backup.Manager, error) {
	bcfg := cfg.BackupConfig()
	engine, err := backup.NewEngine(&bcfg, execx.NewRunner())
	if err != nil {
		return nil, err
	}
	return backup.NewManager(&bcfg, engine)
}

// newAssembler builds the template assembler from the loaded configuration.
func newAssembler() *assembler.Assembler {
	return assembler.New(assembler.Config{
		RemoteURL:     cfg.Assembler.RemoteURL,
		Ref:           cfg.Assembler.Ref,
		Subpath:       cfg.Assembler.Subpath,
		Descriptor:    cfg.Assembler.Descriptor,
		RotationCount: cfg.Assembler.RotationCount,
	})
}
