// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/taintlens/taintlens/pkg/pyast"
)

// ProjectIndex maps file path -> file index, and short function name ->
// every function record across the project sharing that name (spec.md §3's
// "Project index"). Created once per analysis run; read-only afterward.
type ProjectIndex struct {
	// ScanID uniquely identifies this analysis run, written into the JSON
	// report as scan_info.scan_id. The SARIF report does not carry it.
	ScanID string

	Files map[string]*FileIndex

	// FunctionMap indexes every function record by short name across the
	// whole project, in file-encounter order (sorted path order, since
	// BuildProject iterates paths sorted). pkg/resolve's single-component
	// re-export lookup reads this directly rather than re-scanning every
	// file's FileIndex.
	FunctionMap map[string][]*FunctionInfo

	// Skipped records files that were not indexed and why, in encounter
	// order, for the driver to report.
	Skipped []SkippedFile
}

// SkippedFile explains why one discovered path did not make it into the
// project index.
type SkippedFile struct {
	Path   string
	Reason string
}

// Options configures one indexing run (spec.md §4.4's Project Indexer
// inputs).
type Options struct {
	LegacyDialectMode bool
	SkipErrors        bool
	Verbosity         pyast.Verbosity
	Logger            *slog.Logger
}

// FatalIndexError is returned by BuildProject when a file fails to parse
// and SkipErrors is false, matching spec.md §7's ParseFailure propagation
// policy ("else fatal").
type FatalIndexError struct {
	Path string
	Err  error
}

func (e *FatalIndexError) Error() string {
	return fmt.Sprintf("unable to parse %s: %v (use --skip-errors to skip this file and continue)", e.Path, e.Err)
}

func (e *FatalIndexError) Unwrap() error { return e.Err }

// BuildProject indexes every path in paths into a ProjectIndex, following
// spec.md §4.4 (Project Indexer, C4): each file is copied into a scratch
// directory before parsing (originals are never mutated), legacy-dialect
// sources are skipped or upgraded per opts.LegacyDialectMode, and parse
// failures are recovered or fatal per opts.SkipErrors.
func BuildProject(ctx context.Context, paths []string, opts Options) (*ProjectIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	scratchDir, err := os.MkdirTemp("", "taintlens-scan-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	pi := &ProjectIndex{
		ScanID:      uuid.NewString(),
		Files:       make(map[string]*FileIndex),
		FunctionMap: make(map[string][]*FunctionInfo),
	}

	// Sort for deterministic encounter order. This is stricter than the
	// original (which iterates filepaths in whatever order the discovery
	// walk produced) but satisfies it: spec.md §8's determinism property
	// requires byte-identical output across runs, and Go map iteration
	// order elsewhere (the function-lookup tie-break in pkg/resolve) relies
	// on this same sorted order — see DESIGN.md's Open Question on
	// path-suffix tie-breaks.
	sortedPaths := append([]string(nil), paths...)
	sort.Strings(sortedPaths)

	for _, originalPath := range sortedPaths {
		if err := ctx.Err(); err != nil {
			return pi, err
		}

		content, err := os.ReadFile(originalPath)
		if err != nil {
			if opts.SkipErrors {
				pi.Skipped = append(pi.Skipped, SkippedFile{Path: originalPath, Reason: err.Error()})
				logger.Warn("index.skip.read_error", "path", originalPath, "err", err)
				continue
			}
			return pi, fmt.Errorf("read %s: %w", originalPath, err)
		}

		scratchPath := filepath.Join(scratchDir, filepath.Base(originalPath))
		if err := os.WriteFile(scratchPath, content, 0o600); err != nil {
			return pi, fmt.Errorf("write scratch copy of %s: %w", originalPath, err)
		}

		if detectLegacyDialect(content) {
			if !opts.LegacyDialectMode {
				pi.Skipped = append(pi.Skipped, SkippedFile{
					Path:   originalPath,
					Reason: "legacy print-statement dialect detected; use --py2-support to scan it",
				})
				logger.Warn("index.skip.legacy_dialect", "path", originalPath)
				continue
			}
			if err := upgradeLegacyDialect(ctx, scratchPath); err != nil {
				pi.Skipped = append(pi.Skipped, SkippedFile{Path: originalPath, Reason: "dialect upgrade failed"})
				logger.Warn("index.skip.upgrade_failed", "path", originalPath, "err", err)
				continue
			}
		}

		tree, err := pyast.Load(scratchPath, opts.Verbosity, scratchDir, logger)
		if err != nil {
			if opts.SkipErrors {
				pi.Skipped = append(pi.Skipped, SkippedFile{Path: originalPath, Reason: err.Error()})
				logger.Warn("index.skip.parse_error", "path", originalPath, "err", err)
				continue
			}
			return pi, &FatalIndexError{Path: originalPath, Err: err}
		}

		fi := newFileIndex(originalPath, tree)
		indexFile(fi, tree.Root)

		pi.Files[originalPath] = fi
		for name, finfo := range fi.Functions {
			pi.FunctionMap[name] = append(pi.FunctionMap[name], finfo)
		}
	}

	return pi, nil
}

// Close releases every FileIndex's underlying syntax tree.
func (pi *ProjectIndex) Close() {
	for _, fi := range pi.Files {
		fi.Tree.Close()
	}
}

// SortedFilePaths returns the project's file paths in sorted order, the
// deterministic iteration order pkg/resolve and pkg/taint rely on.
func (pi *ProjectIndex) SortedFilePaths() []string {
	out := make([]string, 0, len(pi.Files))
	for p := range pi.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
