// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package finding

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSONReport_RoundTripsScanInfoAndFindings(t *testing.T) {
	findings := []Finding{
		{
			Sink: "pickle.loads", InitialSource: "request.form['payload']", Flow: "tainted",
			Filename: "views.py", Line: 42, Risk: "HIGH",
			Context: Context{HTTPEndpoint: "/upload", HTTPMethod: "POST"},
		},
		{
			Sink: "yaml.load", InitialSource: "open(config_path)", Flow: "file read",
			Filename: "loader.py", Line: 7, Risk: "LOW",
			Context: Context{OperationType: "file_operation", FunctionName: "load_config"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSONReport(&buf, findings, "scan-123", "2026-07-31T00:00:00Z"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	scanInfo := decoded["scan_info"].(map[string]any)
	require.Equal(t, float64(2), scanInfo["total_findings"])
	require.Equal(t, "scan-123", scanInfo["scan_id"])

	riskSummary := scanInfo["risk_summary"].(map[string]any)
	require.Equal(t, float64(1), riskSummary["HIGH"])
	require.Equal(t, float64(1), riskSummary["LOW"])

	findingsOut := decoded["findings"].([]any)
	require.Len(t, findingsOut, 2)

	first := findingsOut[0].(map[string]any)
	require.Equal(t, "views.py", first["file"])
	ctx := first["context"].(map[string]any)
	require.Equal(t, "http", ctx["type"])
	require.Equal(t, "/upload", ctx["endpoint"])
	require.Equal(t, "POST", ctx["method"])
}

func TestWriteJSONReport_NoFindingsYieldsEmptyRiskSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONReport(&buf, nil, "scan-1", "2026-07-31T00:00:00Z"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	scanInfo := decoded["scan_info"].(map[string]any)
	require.Equal(t, float64(0), scanInfo["total_findings"])
	require.Empty(t, scanInfo["risk_summary"])
	require.Empty(t, decoded["findings"])
}
