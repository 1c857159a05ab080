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

// Package finding defines the vulnerability finding record and the report
// sinks (console, JSON, HTML, SARIF) that render a scan's findings.
package finding

import (
	"fmt"
	"sort"
	"strings"
)

// Context captures why a sink call runs where it does: the HTTP route it
// serves, or the file-operation/task-execution nature of its enclosing
// function. A zero Context carries no information, matching the original
// analyzer's empty context dict.
type Context struct {
	HTTPEndpoint  string
	HTTPMethod    string
	OperationType string // "file_operation", "task_execution", or ""
	FunctionName  string
}

// IsZero reports whether no context information was detected.
func (c Context) IsZero() bool { return c == Context{} }

// Finding is one insecure-deserialization detection: a sink call, the
// traced origin of its argument, and the risk that origin implies.
type Finding struct {
	Sink          string
	InitialSource string
	Flow          string
	Filename      string
	Line          int
	Risk          string
	Context       Context
}

// riskRank orders risk levels HIGH < MEDIUM < LOW < anything else, matching
// analyze_index's RISK_LEVELS sort key exactly.
func riskRank(risk string) int {
	switch risk {
	case "HIGH":
		return 0
	case "MEDIUM":
		return 1
	case "LOW":
		return 2
	default:
		return 3
	}
}

// Sort orders findings by risk, then filename, then line number, matching
// analyze_index's sort key (risk, filename, lineno).
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		ra, rb := riskRank(a.Risk), riskRank(b.Risk)
		if ra != rb {
			return ra < rb
		}
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Line < b.Line
	})
}

// contextLine renders the finding's context as the single descriptive line
// Finding.__str__ appends to the report, preferring an HTTP endpoint over
// an operation type exactly as the original's if/elif chain does.
func (f Finding) contextLine() string {
	switch {
	case f.Context.HTTPEndpoint != "":
		if f.Context.HTTPMethod != "" {
			return fmt.Sprintf("\n  Endpoint: %s (%s)", f.Context.HTTPEndpoint, f.Context.HTTPMethod)
		}
		return fmt.Sprintf("\n  Endpoint: %s", f.Context.HTTPEndpoint)
	case f.Context.OperationType == "file_operation":
		name := f.Context.FunctionName
		if name == "" {
			name = "unknown"
		}
		return fmt.Sprintf("\n  Context: File Operation (%s)", name)
	case f.Context.OperationType == "task_execution":
		name := f.Context.FunctionName
		if name == "" {
			name = "unknown"
		}
		return fmt.Sprintf("\n  Context: Task Execution (%s)", name)
	default:
		return ""
	}
}

// String renders one finding exactly as Finding.__str__ does.
func (f Finding) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[!] Insecure deserialization detected\n")
	fmt.Fprintf(&b, "  Risk    : %s\n", f.Risk)
	fmt.Fprintf(&b, "  File    : %s:%d%s\n", f.Filename, f.Line, f.contextLine())
	fmt.Fprintf(&b, "  Source  : %s\n", f.InitialSource)
	fmt.Fprintf(&b, "  Flow    : %s\n", f.Flow)
	fmt.Fprintf(&b, "  Sink    : %s\n", f.Sink)
	return b.String()
}

// RiskCounts tallies findings per risk level, the input to the summary
// line and the JSON/HTML report's risk_summary field.
func RiskCounts(findings []Finding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Risk]++
	}
	return counts
}
