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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	taintlenserrors "github.com/taintlens/taintlens/internal/errors"
	"github.com/taintlens/taintlens/internal/ui"
	"github.com/taintlens/taintlens/pkg/discover"
	"github.com/taintlens/taintlens/pkg/finding"
	"github.com/taintlens/taintlens/pkg/index"
	"github.com/taintlens/taintlens/pkg/metrics"
	"github.com/taintlens/taintlens/pkg/pyast"
	"github.com/taintlens/taintlens/pkg/taint"
)

// sanitizeFilename ports utils.py's sanitize_filename: it reduces a
// project name to a single safe path component, preventing a target path
// like "../../etc" from escaping the reports directory.
func sanitizeFilename(name string) string {
	if name == "" {
		return "unnamed"
	}

	safe := filepath.Base(name)
	if safe == "." || safe == string(filepath.Separator) {
		return "unnamed"
	}
	if len(safe) > 100 {
		safe = safe[:100]
	}
	if safe == "" {
		return "unnamed"
	}
	return safe
}

// projectName derives the sanitized report basename from the scan target,
// matching cli.main's handling of args.target.
func projectName(target string) string {
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	name := filepath.Base(abs)
	name = trimPySuffix(name)
	return sanitizeFilename(name)
}

func trimPySuffix(name string) string {
	const suffix = ".py"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

// formatElapsed renders a duration the way format_elapsed does: plain
// seconds under a minute, minutes-and-seconds above it.
func formatElapsed(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.2f seconds", seconds)
	}
	minutes := int(seconds) / 60
	remaining := seconds - float64(minutes*60)
	plural := "s"
	if minutes == 1 {
		plural = ""
	}
	return fmt.Sprintf("%d minute%s, %.2f seconds", minutes, plural, remaining)
}

// runResult carries the process exit code and, on fatal failure, the
// structured error to hand to errors.FatalError.
type runResult struct {
	exitCode int
	fatal    *taintlenserrors.UserError
}

func ok() runResult { return runResult{exitCode: taintlenserrors.ExitSuccess} }

// exitAbort is the conventional SIGINT exit code: 128 + SIGINT(2).
const exitAbort = 130

// run executes one scan end to end: discovery, indexing, tracing, console
// output, and optional report sinks. It never calls os.Exit directly so
// that its logic is exercised by tests.
func run(ctx context.Context, cfg Config, stdout, stderr io.Writer, logger *slog.Logger) runResult {
	start := time.Now()

	verbosity, err := pyast.ParseVerbosity(cfg.ScanVerbosity)
	if err != nil {
		return runResult{fatal: taintlenserrors.NewInputError(
			"Invalid --scan-verbosity",
			err.Error(),
			"Pass one of: quiet, normal, verbose",
		)}
	}

	files, err := discover.Files(cfg.Target, cfg.Exclude)
	if err != nil {
		return runResult{fatal: taintlenserrors.NewInputError(
			"Invalid target",
			err.Error(),
			"Pass a source file or a directory containing one",
		)}
	}

	if len(files) == 0 {
		ui.Warning("No Python files found in the target.")
		return ok()
	}
	metrics.RecordDiscovered(len(files))

	progressCfg := NewProgressConfig(cfg)

	spinner := NewSpinner(progressCfg, "Indexing")
	pi, err := index.BuildProject(ctx, files, index.Options{
		LegacyDialectMode: cfg.Py2Support,
		SkipErrors:        cfg.SkipErrors,
		Verbosity:         verbosity,
		Logger:            logger,
	})
	finishBar(spinner)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.Warning("Scan aborted by user.")
			return runResult{exitCode: exitAbort}
		}

		var fatalIdx *index.FatalIndexError
		if errors.As(err, &fatalIdx) {
			return runResult{fatal: taintlenserrors.NewParseFailureError(
				fmt.Sprintf("Could not parse %s", fatalIdx.Path),
				fatalIdx.Err.Error(),
				"Use --skip-errors to skip this file and continue",
				fatalIdx.Err,
			)}
		}

		return runResult{fatal: taintlenserrors.NewInternalError(
			"Indexing failed unexpectedly",
			err.Error(),
			"Re-run with --skip-errors, or file a bug if this persists",
			err,
		)}
	}
	defer pi.Close()

	for _, skipped := range pi.Skipped {
		ui.Warningf("Skipped %s: %s", skipped.Path, skipped.Reason)
		metrics.RecordSkipped()
	}
	for range pi.Files {
		metrics.RecordIndexed()
	}

	findings := traceProject(pi, progressCfg)
	finding.Sort(findings)

	for _, f := range findings {
		metrics.RecordFinding(f.Risk)
	}

	if cfg.Verbose {
		finding.PrintVerboseFindings(stdout, findings)
	}
	finding.PrintConsoleReport(stdout, findings)
	finding.PrintSummaryWithColors(stdout, findings)
	fmt.Fprintf(stdout, "\n[+] Scan completed in %s.\n", formatElapsed(time.Since(start)))

	if cfg.HTML || cfg.JSON || cfg.SARIF {
		if err := writeReports(cfg, pi.ScanID, findings); err != nil {
			return runResult{fatal: taintlenserrors.NewReportIoError(
				"Cannot write report",
				err.Error(),
				"Check the reports/ directory's write permissions",
				err,
			)}
		}
	}

	return ok()
}

// traceProject runs a Tracer over every file in the project index in
// deterministic order, matching analyze_index's per-file visitor loop. A
// panic inside one file's trace is recovered and printed as an error, and
// that file contributes no findings (it is not counted as skipped),
// mirroring analyze_index's per-file try/except around visitor.visit.
func traceProject(pi *index.ProjectIndex, progressCfg ProgressConfig) []finding.Finding {
	paths := pi.SortedFilePaths()
	bar := NewProgressBar(progressCfg, int64(len(paths)), "Scanning")
	defer finishBar(bar)

	var findings []finding.Finding
	for _, path := range paths {
		findings = append(findings, traceFile(pi, path)...)
		addBar(bar)
	}
	return findings
}

func traceFile(pi *index.ProjectIndex, path string) (result []finding.Finding) {
	defer func() {
		if r := recover(); r != nil {
			ui.Errorf("Error analyzing %s: %v", path, r)
			result = nil
		}
	}()

	fi := pi.Files[path]
	tracer := taint.NewTracer(fi, pi)
	return tracer.Run()
}

// writeReports creates reports/ if needed and writes every requested
// report sink, naming each file reports/<project>_<timestamp>.<ext> to
// match export_json_report/export_html_report.
func writeReports(cfg Config, scanID string, findings []finding.Finding) error {
	const reportsDir = "reports"
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	name := projectName(cfg.Target)
	now := time.Now()
	timestamp := now.Format("20060102_150405")

	if cfg.JSON {
		path := filepath.Join(reportsDir, fmt.Sprintf("%s_%s.json", name, timestamp))
		if err := writeReportFile(path, func(w io.Writer) error {
			return finding.WriteJSONReport(w, findings, scanID, now.Format(time.RFC3339))
		}); err != nil {
			return err
		}
		ui.Successf("JSON report written to %s", path)
	}

	if cfg.HTML {
		path := filepath.Join(reportsDir, fmt.Sprintf("%s_%s.html", name, timestamp))
		if err := writeReportFile(path, func(w io.Writer) error {
			return finding.WriteHTMLReport(w, findings, name, timestamp)
		}); err != nil {
			return err
		}
		ui.Successf("HTML report written to %s", path)
	}

	if cfg.SARIF {
		path := filepath.Join(reportsDir, fmt.Sprintf("%s_%s.sarif", name, timestamp))
		if err := writeReportFile(path, func(w io.Writer) error {
			return finding.WriteSARIFReport(w, findings)
		}); err != nil {
			return err
		}
		ui.Successf("SARIF report written to %s", path)
	}

	return nil
}

func writeReportFile(path string, encode func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := encode(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
