// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

package backup

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// newCompressedWriter wraps w with the configured compressor.
func newCompressedWriter(w io.Writer, cfg CompressionConfig) (io.WriteCloser, error) {
	switch cfg.Algorithm {
	case "gzip":
		zw, err := gzip.NewWriterLevel(w, cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		return zw, nil
	case "zstd":
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevel(cfg.Level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm: %s", cfg.Algorithm)
	}
}

// dumpExtension returns the dump file suffix for the algorithm.
func dumpExtension(algorithm string) string {
	if algorithm == "zstd" {
		return ".sql.zst"
	}
	return ".sql.gz"
}

// extractArchive unpacks a zstd-compressed tarball artifact into destDir.
// Entry paths are validated against traversal before anything is written.
func extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath) //nolint:gosec // G304: path comes from internal backup storage
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}
		if err := extractArchiveEntry(tr, destDir, header); err != nil {
			return err
		}
	}
	return nil
}

// extractArchiveEntry writes one tar entry under destDir.
func extractArchiveEntry(tr *tar.Reader, destDir string, header *tar.Header) error {
	destPath, err := safeJoin(destDir, header.Name)
	if err != nil {
		return err
	}

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(destPath, 0o750)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", header.Name, err)
		}
		out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, header.FileInfo().Mode().Perm()) //nolint:gosec // G304: destPath validated by safeJoin
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", header.Name, err)
		}
		if _, err := io.CopyN(out, tr, header.Size); err != nil && !errors.Is(err, io.EOF) {
			out.Close() //nolint:errcheck // Best effort cleanup on error
			return fmt.Errorf("failed to extract %s: %w", header.Name, err)
		}
		return out.Close()
	default:
		return nil // Symlinks and specials are not part of backup artifacts
	}
}

// safeJoin joins name under dir, rejecting paths that escape it (G305).
func safeJoin(dir, name string) (string, error) {
	dest := filepath.Join(dir, name)
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return dest, nil
}
