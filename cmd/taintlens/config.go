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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// Config holds every flag taintlens accepts, matching spec.md §6's flat,
// single-command CLI surface: one positional target and a flag set, not
// the subcommand tree the teacher's `cie` driver uses.
type Config struct {
	Target string

	Exclude      []string
	HTML         bool
	JSON         bool
	SARIF        bool
	Py2Support   bool
	SkipErrors   bool
	Verbose      bool
	ScanVerbosity string

	Quiet       bool
	NoColor     bool
	MetricsAddr string
}

// parseConfig parses argv into a Config. The returned error, when non-nil,
// is always a usage error suitable for NewInputError.
func parseConfig(argv []string) (Config, error) {
	fs := flag.NewFlagSet("taintlens", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var cfg Config
	fs.StringArrayVar(&cfg.Exclude, "exclude", nil, "pattern to exclude from scanning (repeatable)")
	fs.BoolVar(&cfg.HTML, "html", false, "write an HTML report to reports/")
	fs.BoolVar(&cfg.JSON, "json", false, "write a JSON report to reports/")
	fs.BoolVar(&cfg.SARIF, "sarif", false, "write a SARIF 2.1.0 report to reports/")
	fs.BoolVar(&cfg.Py2Support, "py2-support", false, "upgrade legacy print-statement sources before scanning")
	fs.BoolVar(&cfg.SkipErrors, "skip-errors", false, "continue scanning past files that fail to parse")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "print full trace details for each finding")
	fs.StringVar(&cfg.ScanVerbosity, "scan-verbosity", "normal", "warning output: quiet, normal, or verbose")
	fs.BoolVarP(&cfg.Quiet, "quiet", "q", false, "suppress progress output")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "disable colored output")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: taintlens [options] <target>

Detect insecure deserialization flows (pickle and friends) in a Python
codebase. target is a single .py file or a directory scanned recursively.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(argv); err != nil {
		return Config{}, err
	}

	switch cfg.ScanVerbosity {
	case "quiet", "normal", "verbose":
	default:
		return Config{}, fmt.Errorf("invalid --scan-verbosity %q (want quiet, normal, or verbose)", cfg.ScanVerbosity)
	}

	args := fs.Args()
	if len(args) != 1 {
		return Config{}, fmt.Errorf("expected exactly one target, got %d", len(args))
	}
	cfg.Target = args[0]

	return cfg, nil
}
