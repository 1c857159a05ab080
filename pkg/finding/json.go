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
	"encoding/json"
	"io"
)

// jsonContext is the "context" object shape export_json_report builds: a
// "type" discriminator plus the fields relevant to that type. A finding
// with no context still carries the key, encoded as an empty object.
type jsonContext struct {
	Type         string `json:"type,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	Method       string `json:"method,omitempty"`
	FunctionName string `json:"function_name,omitempty"`
}

func (f Finding) jsonContext() jsonContext {
	switch {
	case f.Context.HTTPEndpoint != "":
		method := f.Context.HTTPMethod
		if method == "" {
			method = "GET"
		}
		return jsonContext{Type: "http", Endpoint: f.Context.HTTPEndpoint, Method: method}
	case f.Context.OperationType == "file_operation":
		name := f.Context.FunctionName
		if name == "" {
			name = "unknown"
		}
		return jsonContext{Type: "file_operation", FunctionName: name}
	case f.Context.OperationType == "task_execution":
		name := f.Context.FunctionName
		if name == "" {
			name = "unknown"
		}
		return jsonContext{Type: "task_execution", FunctionName: name}
	default:
		return jsonContext{}
	}
}

type jsonFinding struct {
	File          string      `json:"file"`
	Line          int         `json:"line"`
	Sink          string      `json:"sink"`
	InitialSource string      `json:"initial_source"`
	Flow          string      `json:"flow"`
	Risk          string      `json:"risk"`
	Context       jsonContext `json:"context"`
}

type jsonScanInfo struct {
	TotalFindings int            `json:"total_findings"`
	RiskSummary   map[string]int `json:"risk_summary"`
	GeneratedAt   string         `json:"generated_at"`
	ScanID        string         `json:"scan_id,omitempty"`
}

type jsonReport struct {
	ScanInfo jsonScanInfo  `json:"scan_info"`
	Findings []jsonFinding `json:"findings"`
}

// WriteJSONReport encodes findings as the scan_info/findings document
// export_json_report builds, with the project's scan_id threaded through
// in addition to the original's fields.
func WriteJSONReport(w io.Writer, findings []Finding, scanID string, generatedAt string) error {
	report := jsonReport{
		ScanInfo: jsonScanInfo{
			TotalFindings: len(findings),
			RiskSummary:   RiskCounts(findings),
			GeneratedAt:   generatedAt,
			ScanID:        scanID,
		},
		Findings: make([]jsonFinding, 0, len(findings)),
	}

	for _, f := range findings {
		report.Findings = append(report.Findings, jsonFinding{
			File:          f.Filename,
			Line:          f.Line,
			Sink:          f.Sink,
			InitialSource: f.InitialSource,
			Flow:          f.Flow,
			Risk:          f.Risk,
			Context:       f.jsonContext(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
