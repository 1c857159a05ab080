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
	"html"
	"io"
)

var riskColors = map[string]string{
	"HIGH":   "#dc3545",
	"MEDIUM": "#fd7e14",
	"LOW":    "#0d6efd",
}

const htmlStyle = `
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            margin: 0;
            padding: 20px;
            background-color: #f8f9fa;
            color: #333;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background-color: white;
            border-radius: 8px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px;
            text-align: center;
        }
        .header h1 { margin: 0; font-size: 2.5em; font-weight: 300; }
        .header .subtitle { margin-top: 10px; opacity: 0.9; font-size: 1.1em; }
        .summary { padding: 20px; background-color: #f8f9fa; border-bottom: 1px solid #dee2e6; }
        .summary-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            margin-top: 15px;
        }
        .summary-card {
            background: white;
            padding: 20px;
            border-radius: 6px;
            text-align: center;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .summary-card .number { font-size: 2em; font-weight: bold; margin-bottom: 5px; }
        .summary-card .label {
            color: #6c757d;
            font-size: 0.9em;
            text-transform: uppercase;
            letter-spacing: 1px;
        }
        .findings-section { padding: 20px; }
        .findings-section h2 {
            color: #495057;
            border-bottom: 2px solid #dee2e6;
            padding-bottom: 10px;
            margin-bottom: 20px;
        }
        .finding {
            background: white;
            border: 1px solid #dee2e6;
            border-radius: 6px;
            margin-bottom: 20px;
            overflow: hidden;
        }
        .finding-header {
            padding: 15px 20px;
            border-bottom: 1px solid #dee2e6;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        .risk-badge {
            padding: 5px 12px;
            border-radius: 20px;
            color: white;
            font-weight: bold;
            font-size: 0.9em;
            text-transform: uppercase;
        }
        .finding-details { padding: 20px; }
        .detail-row {
            display: grid;
            grid-template-columns: 120px 1fr;
            gap: 15px;
            margin-bottom: 15px;
            align-items: start;
        }
        .detail-label {
            font-weight: bold;
            color: #495057;
            text-transform: uppercase;
            font-size: 0.8em;
            letter-spacing: 1px;
        }
        .detail-value { color: #333; word-break: break-all; line-height: 1.5; }
        .file-path {
            font-family: 'Courier New', monospace;
            background-color: #f8f9fa;
            padding: 8px 12px;
            border-radius: 4px;
            border-left: 4px solid #007bff;
        }
        .flow-text {
            font-family: 'Courier New', monospace;
            background-color: #f8f9fa;
            padding: 8px 12px;
            border-radius: 4px;
            border-left: 4px solid #28a745;
            white-space: pre-wrap;
        }
        .footer {
            background-color: #f8f9fa;
            padding: 20px;
            text-align: center;
            color: #6c757d;
            border-top: 1px solid #dee2e6;
        }
        .no-findings { text-align: center; padding: 40px; color: #6c757d; }
        .no-findings h3 { color: #28a745; margin-bottom: 10px; }
`

// WriteHTMLReport renders findings as a single self-contained HTML page,
// matching generate_html_content's structure (gradient header, stat cards,
// one card per finding). Written with fmt.Fprintf straight to w rather
// than html/template: the page has one fixed shape with no conditional
// branching beyond what's inlined here, so a template engine buys nothing
// over formatted writes plus explicit html.EscapeString at each
// user-controlled insertion point.
func WriteHTMLReport(w io.Writer, findings []Finding, projectName, timestamp string) error {
	counts := RiskCounts(findings)

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Taintlens Report - %s</title>
    <style>%s</style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Taintlens Report</h1>
            <div class="subtitle">
                Insecure Deserialization Analysis<br>
                <small>Generated on %s</small>
            </div>
        </div>

        <div class="summary">
            <h2>Scan Summary</h2>
            <div class="summary-grid">
                <div class="summary-card">
                    <div class="number">%d</div>
                    <div class="label">Total Findings</div>
                </div>
`, html.EscapeString(projectName), htmlStyle, html.EscapeString(timestamp), len(findings))

	for _, level := range []string{"HIGH", "MEDIUM", "LOW"} {
		fmt.Fprintf(w, `                <div class="summary-card">
                    <div class="number" style="color: %s;">%d</div>
                    <div class="label">%s Risk</div>
                </div>
`, riskColors[level], counts[level], level)
	}

	fmt.Fprint(w, `            </div>
        </div>

        <div class="findings-section">
            <h2>Detailed Findings</h2>
`)

	if len(findings) == 0 {
		fmt.Fprint(w, `            <div class="no-findings">
                <h3>No Vulnerabilities Found</h3>
                <p>No insecure deserialization vulnerabilities were detected in the scanned code.</p>
            </div>
`)
	} else {
		for i, f := range findings {
			color, ok := riskColors[f.Risk]
			if !ok {
				color = "#6c757d"
			}
			context := tableContext(f)
			if context == "" {
				context = "N/A"
			}
			fmt.Fprintf(w, `            <div class="finding">
                <div class="finding-header">
                    <h3>Finding #%d</h3>
                    <span class="risk-badge" style="background-color: %s;">%s</span>
                </div>
                <div class="finding-details">
                    <div class="detail-row">
                        <div class="detail-label">File</div>
                        <div class="detail-value">
                            <div class="file-path">%s:%d</div>
                        </div>
                    </div>
                    <div class="detail-row">
                        <div class="detail-label">Context</div>
                        <div class="detail-value">%s</div>
                    </div>
                    <div class="detail-row">
                        <div class="detail-label">Source</div>
                        <div class="detail-value">%s</div>
                    </div>
                    <div class="detail-row">
                        <div class="detail-label">Flow</div>
                        <div class="detail-value">
                            <div class="flow-text">%s</div>
                        </div>
                    </div>
                    <div class="detail-row">
                        <div class="detail-label">Sink</div>
                        <div class="detail-value">%s</div>
                    </div>
                </div>
            </div>
`, i+1, color, html.EscapeString(f.Risk), html.EscapeString(f.Filename), f.Line,
				html.EscapeString(context), html.EscapeString(f.InitialSource),
				html.EscapeString(f.Flow), html.EscapeString(f.Sink))
		}
	}

	_, err := fmt.Fprintf(w, `        </div>

        <div class="footer">
            <p>Generated by Taintlens | %s | %s</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(projectName), html.EscapeString(timestamp))
	return err
}
