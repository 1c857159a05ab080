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

package finding

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
)

// riskColor mirrors get_risk_color: HIGH is bold red, MEDIUM bold orange
// (approximated as yellow, fatih/color has no orange), LOW bold blue, and
// anything else unstyled.
func riskColor(risk string) *color.Color {
	switch risk {
	case "HIGH":
		return color.New(color.FgRed, color.Bold)
	case "MEDIUM":
		return color.New(color.FgYellow, color.Bold)
	case "LOW":
		return color.New(color.FgBlue, color.Bold)
	default:
		return color.New()
	}
}

// PrintConsoleReport renders findings as an aligned table, the width-None
// "unlimited" table from print_console_report reduced to a tab-aligned
// table since no rich-text-table dependency is in the module's stack.
func PrintConsoleReport(w io.Writer, findings []Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "[+] No insecure deserialization flows detected.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RISK\tFILE\tLINE\tCONTEXT\tSOURCE\tFLOW\tSINK")
	for _, f := range findings {
		risk := riskColor(f.Risk).Sprint(f.Risk)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			risk, f.Filename, f.Line, tableContext(f), f.InitialSource, f.Flow, f.Sink)
	}
	tw.Flush()
}

// tableContext formats the same context precedence as contextLine, but as
// a single inline phrase rather than Finding.String's multi-line block,
// matching print_console_report's "context_info" local exactly.
func tableContext(f Finding) string {
	switch {
	case f.Context.HTTPEndpoint != "":
		method := f.Context.HTTPMethod
		if method == "" {
			method = "GET"
		}
		return fmt.Sprintf("%s %s", method, f.Context.HTTPEndpoint)
	case f.Context.OperationType == "file_operation":
		name := f.Context.FunctionName
		if name == "" {
			name = "unknown"
		}
		return "File Op: " + name
	case f.Context.OperationType == "task_execution":
		name := f.Context.FunctionName
		if name == "" {
			name = "unknown"
		}
		return "Task: " + name
	default:
		return ""
	}
}

// PrintVerboseFindings prints one colorized block per finding, matching
// print_verbose_findings.
func PrintVerboseFindings(w io.Writer, findings []Finding) {
	for _, f := range findings {
		fmt.Fprintln(w, color.New(color.FgYellow, color.Bold).Sprint("[!] Insecure deserialization detected"))
		fmt.Fprintf(w, "  Risk    : %s\n", riskColor(f.Risk).Sprint(f.Risk))
		fmt.Fprintf(w, "  File    : %s:%d\n", color.CyanString(f.Filename), f.Line)

		switch {
		case f.Context.HTTPEndpoint != "":
			method := f.Context.HTTPMethod
			if method == "" {
				method = "GET"
			}
			fmt.Fprintf(w, "  Endpoint: %s\n", color.New(color.FgBlue, color.Bold).Sprintf("%s %s", method, f.Context.HTTPEndpoint))
		case f.Context.OperationType == "file_operation":
			name := f.Context.FunctionName
			if name == "" {
				name = "unknown"
			}
			fmt.Fprintf(w, "  Context : %s\n", color.New(color.FgCyan, color.Bold).Sprintf("File Operation: %s", name))
		case f.Context.OperationType == "task_execution":
			name := f.Context.FunctionName
			if name == "" {
				name = "unknown"
			}
			fmt.Fprintf(w, "  Context : %s\n", color.New(color.FgMagenta, color.Bold).Sprintf("Task Execution: %s", name))
		}

		fmt.Fprintf(w, "  Source  : %s\n", color.New(color.FgMagenta, color.Bold).Sprint(f.InitialSource))
		fmt.Fprintf(w, "  Flow    : %s\n", color.New(color.FgGreen, color.Bold).Sprint(f.Flow))
		fmt.Fprintf(w, "  Sink    : %s\n", color.New(color.FgRed, color.Bold).Sprint(f.Sink))
		fmt.Fprintln(w)
	}
}

// PrintSummaryWithColors prints the total findings and per-risk breakdown,
// matching print_summary_with_colors.
func PrintSummaryWithColors(w io.Writer, findings []Finding) {
	counts := RiskCounts(findings)
	fmt.Fprintf(w, "\n[!] Total Findings: %d\n", len(findings))
	fmt.Fprintln(w, "\n"+dashes(60))
	fmt.Fprintln(w, "[!] Risk Summary:")
	for _, level := range []string{"HIGH", "MEDIUM", "LOW"} {
		count, ok := counts[level]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "    %s\n", riskColor(level).Sprintf("%s: %d", level, count))
	}
	fmt.Fprintln(w, dashes(60))
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
