// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package assembler turns a project's declared service list into one merged
// deployment descriptor and one consolidated environment file.
//
// The project's primary descriptor names its required services under the
// x-required-services key. Matching template fragments are fetched from a
// remote git tree, copied into the project on the first run (or on a forced
// refresh), merged section by section into docker-compose.yml, and their
// environment defaults consolidated into .env with first-writer-wins
// duplicate handling. A lock file pins the template revision the project
// was last assembled from; it is only rewritten after every copy and merge
// has succeeded, so a failed run leaves prior state untouched.
package assembler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipukeone/rogmar/internal/compose"
	"github.com/ipukeone/rogmar/internal/envfile"
	"github.com/ipukeone/rogmar/internal/errdefs"
	"github.com/ipukeone/rogmar/internal/execx"
	"github.com/ipukeone/rogmar/internal/gitfetch"
	"github.com/ipukeone/rogmar/internal/logging"
	"github.com/ipukeone/rogmar/internal/metrics"
)

// Project file layout.
const (
	// LockFileName pins the assembled template revision.
	LockFileName = ".template.lock"

	// OutputDescriptorName is the merged deployment descriptor.
	OutputDescriptorName = "docker-compose.yml"

	// OutputEnvName is the consolidated environment file.
	OutputEnvName = ".env"

	// FragmentDirName holds the per-service descriptor fragments.
	FragmentDirName = "compose"

	// EnvDirName holds the per-service environment defaults.
	EnvDirName = "env"

	// LocalEnvName is the project-local environment override, merged
	// ahead of every template's defaults.
	LocalEnvName = "local.env"
)

// Template-side layout, relative to a service's template directory.
const (
	templateFragmentName = "compose.yml"
	templateEnvName      = ".env"
)

// Config holds assembly settings.
type Config struct {
	// RemoteURL of the template repository
	RemoteURL string

	// Ref (branch or tag) to fetch
	Ref string

	// Subpath inside the repository holding the service templates
	Subpath string

	// Descriptor is the project's primary descriptor file name
	Descriptor string

	// RotationCount of kept output backups before each rewrite
	RotationCount int
}

// Options modify one assembly run.
type Options struct {
	// Force refreshes copied assets even when the lock is stale.
	Force bool

	// DryRun resolves and merges but writes nothing.
	DryRun bool

	// DeleteVolumes removes the project's named volumes after assembly.
	DeleteVolumes bool
}

// Result reports what an assembly run did (or, for a dry run, would do).
type Result struct {
	// Revision is the resolved template revision.
	Revision string

	// LockState before the run.
	LockState LockState

	// Services in resolution order.
	Services []string

	// CopiedAssets lists project-relative paths that were (or would be)
	// created by asset copying.
	CopiedAssets []string

	// DescriptorChanged reports whether the merged descriptor differs
	// from what is on disk.
	DescriptorChanged bool

	// EnvChanged reports whether the merged environment file differs
	// from what is on disk.
	EnvChanged bool

	// DuplicateKeys counts environment keys dropped as duplicates.
	DuplicateKeys int
}

// Assembler performs template assembly runs.
type Assembler struct {
	cfg    Config
	fetch  gitfetch.Fetcher
	runner execx.Runner
}

// New creates an Assembler using the real git fetcher and process runner.
func New(cfg Config) *Assembler {
	return &Assembler{cfg: cfg, fetch: gitfetch.Fetch, runner: execx.NewRunner()}
}

// NewWithFetcher creates an Assembler with injected fetch and run
// primitives. Used by tests.
func NewWithFetcher(cfg Config, fetch gitfetch.Fetcher, runner execx.Runner) *Assembler {
	return &Assembler{cfg: cfg, fetch: fetch, runner: runner}
}

// Assemble runs the full assembly for one project directory.
func (a *Assembler) Assemble(ctx context.Context, projectDir string, opts Options) (*Result, error) {
	res, err := a.assemble(ctx, projectDir, opts)
	if err != nil {
		metrics.RecordAssembly(metrics.OutcomeFailure)
		return res, err
	}
	metrics.RecordAssembly(metrics.OutcomeSuccess)
	return res, nil
}

func (a *Assembler) assemble(ctx context.Context, projectDir string, opts Options) (*Result, error) {
	services, err := a.ResolveRequiredServices(filepath.Join(projectDir, a.cfg.Descriptor))
	if err != nil {
		return nil, err
	}

	snap, err := a.fetch(ctx, a.cfg.RemoteURL, a.cfg.Ref, a.cfg.Subpath)
	if err != nil {
		return nil, err
	}
	defer snap.Close() //nolint:errcheck // Best effort cleanup of the temp clone

	res := &Result{Revision: snap.Revision, Services: services}

	lockPath := filepath.Join(projectDir, LockFileName)
	res.LockState, err = CheckLock(lockPath, snap.Revision)
	if err != nil {
		return res, err
	}

	// Copying never overwrites existing files, so it runs on every
	// non-stale pass: a service newly added to the required list gets its
	// assets even when the pinned revision is current. Only a stale lock
	// without --force holds copies back.
	copyAssets := res.LockState != LockStale || opts.Force
	if res.LockState == LockStale && !opts.Force {
		logging.Warn().
			Str("revision", snap.Revision).
			Msg("Templates changed upstream, rerun with --force to refresh local copies")
	}

	for _, svc := range services {
		if _, err := os.Stat(snap.ServicePath(svc)); err != nil {
			return res, errdefs.NotFound("no template for service %q at revision %s", svc, snap.Revision)
		}
	}

	if copyAssets {
		for _, svc := range services {
			copied, err := a.CopyServiceAssets(snap, svc, projectDir, opts)
			if err != nil {
				return res, err
			}
			res.CopiedAssets = append(res.CopiedAssets, copied...)
		}
	}

	if err := a.mergeOutputs(snap, projectDir, services, opts, res); err != nil {
		return res, err
	}

	// The lock records the revision whose assets are in the project, so
	// it is written on the initial copy and on a forced refresh, never on
	// an up-to-date rerun.
	if res.LockState != LockUpToDate && copyAssets && !opts.DryRun {
		if err := WriteLock(lockPath, snap.Revision); err != nil {
			return res, err
		}
	}

	if opts.DeleteVolumes && !opts.DryRun {
		a.deleteProjectVolumes(ctx, projectDir)
	}

	logging.Info().
		Str("revision", snap.Revision).
		Str("lock_state", string(res.LockState)).
		Strs("services", services).
		Bool("dry_run", opts.DryRun).
		Msg("Assembly completed")
	return res, nil
}

// ResolveRequiredServices reads and validates the declared service list
// from the project's primary descriptor.
func (a *Assembler) ResolveRequiredServices(descriptorPath string) ([]string, error) {
	doc, err := compose.Load(descriptorPath)
	if err != nil {
		return nil, err
	}
	if doc.IsEmpty() {
		return nil, errdefs.Config("primary descriptor %s is missing", descriptorPath)
	}
	services, err := doc.RequiredServices()
	if err != nil {
		return nil, err
	}
	if err := compose.ValidateServiceNames(services); err != nil {
		return nil, err
	}
	return services, nil
}

// mergeOutputs produces the merged descriptor and environment file, writing
// them (with rotation) unless this is a dry run or nothing changed.
func (a *Assembler) mergeOutputs(snap *gitfetch.Snapshot, projectDir string, services []string, opts Options, res *Result) error {
	merged, err := a.MergeDescriptor(snap, projectDir, services)
	if err != nil {
		return err
	}
	descriptorBytes, err := merged.Bytes()
	if err != nil {
		return err
	}

	envLines, prov, err := a.MergeEnv(snap, projectDir, services)
	if err != nil {
		return err
	}
	res.DuplicateKeys = prov.Duplicates()

	descriptorPath := filepath.Join(projectDir, OutputDescriptorName)
	envPath := filepath.Join(projectDir, OutputEnvName)

	res.DescriptorChanged = fileDiffers(descriptorPath, descriptorBytes)
	res.EnvChanged = fileDiffers(envPath, envfile.Render(envLines))

	if opts.DryRun {
		logging.Info().
			Bool("descriptor_changed", res.DescriptorChanged).
			Bool("env_changed", res.EnvChanged).
			Int("duplicate_keys", res.DuplicateKeys).
			Msg("Dry run: outputs not written")
		return nil
	}

	if res.DescriptorChanged {
		if err := rotateBackups(descriptorPath, a.cfg.RotationCount); err != nil {
			return err
		}
		if err := os.WriteFile(descriptorPath, descriptorBytes, 0o644); err != nil { //nolint:gosec // Descriptor is world-readable config
			return fmt.Errorf("failed to write %s: %w", descriptorPath, err)
		}
	}
	if res.EnvChanged {
		if err := rotateBackups(envPath, a.cfg.RotationCount); err != nil {
			return err
		}
		if err := envfile.WriteFile(envPath, envLines); err != nil {
			return err
		}
	}
	return nil
}

// MergeDescriptor overlays the primary descriptor and every service
// fragment, in resolution order, into one deployment descriptor.
func (a *Assembler) MergeDescriptor(snap *gitfetch.Snapshot, projectDir string, services []string) (*compose.Document, error) {
	merged := compose.New()

	primary, err := compose.Load(filepath.Join(projectDir, a.cfg.Descriptor))
	if err != nil {
		return nil, err
	}
	merged.Merge(primary)

	for _, svc := range services {
		fragment, err := compose.Load(a.fragmentPath(snap, projectDir, svc))
		if err != nil {
			return nil, err
		}
		merged.Merge(fragment)
	}
	return merged, nil
}

// MergeEnv consolidates the project-local override file and each service's
// environment defaults, first writer wins.
func (a *Assembler) MergeEnv(snap *gitfetch.Snapshot, projectDir string, services []string) ([]string, *envfile.Provenance, error) {
	sources := make([]envfile.Source, 0, len(services)+1)

	local, err := envfile.LoadSource(LocalEnvName, filepath.Join(projectDir, LocalEnvName))
	if err != nil {
		return nil, nil, err
	}
	sources = append(sources, local)

	for _, svc := range services {
		src, err := envfile.LoadSource(svc, a.envPath(snap, projectDir, svc))
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}

	lines, prov := envfile.Merge(sources...)
	return lines, prov, nil
}

// fragmentPath prefers the project's customized copy of a service fragment
// and falls back to the fetched template.
func (a *Assembler) fragmentPath(snap *gitfetch.Snapshot, projectDir, svc string) string {
	local := filepath.Join(projectDir, FragmentDirName, svc+".yml")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(snap.ServicePath(svc), templateFragmentName)
}

// envPath prefers the project's customized copy of a service env file and
// falls back to the fetched template.
func (a *Assembler) envPath(snap *gitfetch.Snapshot, projectDir, svc string) string {
	local := filepath.Join(projectDir, EnvDirName, svc+".env")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(snap.ServicePath(svc), templateEnvName)
}

// deleteProjectVolumes removes the named volumes declared in the merged
// descriptor. Removal failures are warnings: a volume may simply not exist
// yet.
func (a *Assembler) deleteProjectVolumes(ctx context.Context, projectDir string) {
	doc, err := compose.Load(filepath.Join(projectDir, OutputDescriptorName))
	if err != nil {
		logging.Warn().Err(err).Msg("Cannot read merged descriptor for volume deletion")
		return
	}

	project := filepath.Base(projectDir)
	for _, name := range doc.SectionKeys("volumes") {
		volume := project + "_" + name
		err := a.runner.Run(ctx, execx.Cmd{
			Name: "docker",
			Args: []string{"volume", "rm", "--force", volume},
		})
		if err != nil {
			logging.Warn().Str("volume", volume).Err(err).Msg("Failed to remove volume")
			continue
		}
		logging.Info().Str("volume", volume).Msg("Removed volume")
	}
}

// fileDiffers reports whether path's content differs from data. A missing
// file always differs.
func fileDiffers(path string, data []byte) bool {
	existing, err := os.ReadFile(path) //nolint:gosec // G304: project file paths
	if err != nil {
		return true
	}
	return string(existing) != string(data)
}
