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
	"fmt"
	"io"

	sarif "github.com/owenrumney/go-sarif/v2/sarif"
)

// defaultSarifRuleID is used only when a finding's Sink is empty, which
// should not occur in practice but keeps CreateResultForRule well-formed.
const defaultSarifRuleID = "insecure-deserialization"

// WriteSARIFReport encodes findings as a SARIF 2.1.0 log, a format the
// original tool never emitted but which every finding maps onto cleanly.
// One rule is registered per distinct sink name encountered (e.g.
// "pickle.loads", "yaml.load"), so a SARIF viewer groups and labels
// results by the specific insecure-deserialization call rather than a
// single generic check; one result per finding, with a two-location code
// flow linking its source back to its sink.
func WriteSARIFReport(w io.Writer, findings []Finding) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("Taintlens", "https://github.com/taintlens/taintlens")

	registered := make(map[string]bool)
	for _, f := range findings {
		ruleID := sinkRuleID(f.Sink)
		if registered[ruleID] {
			continue
		}
		registered[ruleID] = true
		run.AddRule(ruleID).
			WithDescription(fmt.Sprintf("Tainted data reaches %s, an insecure deserialization sink.", ruleID)).
			WithName("InsecureDeserialization").
			WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel(sarifLevel("HIGH")))
	}

	for _, f := range findings {
		addSARIFResult(run, f)
	}

	report.AddRun(run)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func sinkRuleID(sink string) string {
	if sink == "" {
		return defaultSarifRuleID
	}
	return sink
}

func sarifLevel(risk string) string {
	switch risk {
	case "HIGH":
		return "error"
	case "MEDIUM":
		return "warning"
	case "LOW":
		return "note"
	default:
		return "warning"
	}
}

func addSARIFResult(run *sarif.Run, f Finding) {
	message := fmt.Sprintf("%s reaches %s via %s", f.InitialSource, f.Sink, f.Flow)

	result := run.CreateResultForRule(sinkRuleID(f.Sink)).
		WithLevel(sarifLevel(f.Risk)).
		WithMessage(sarif.NewTextMessage(message))

	region := sarif.NewRegion().WithStartLine(f.Line)
	location := sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Filename)).
			WithRegion(region),
	)
	result.AddLocation(location)

	sourceLocation := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Filename)).
				WithRegion(sarif.NewRegion().WithStartLine(f.Line)),
		).
		WithMessage(sarif.NewTextMessage("Taint source: " + f.InitialSource))

	sinkLocation := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Filename)).
				WithRegion(sarif.NewRegion().WithStartLine(f.Line)),
		).
		WithMessage(sarif.NewTextMessage("Taint sink: " + f.Sink))

	threadFlow := sarif.NewThreadFlow().WithLocations([]*sarif.ThreadFlowLocation{
		sarif.NewThreadFlowLocation().WithLocation(sourceLocation),
		sarif.NewThreadFlowLocation().WithLocation(sinkLocation),
	})

	codeFlow := sarif.NewCodeFlow().
		WithThreadFlows([]*sarif.ThreadFlow{threadFlow}).
		WithMessage(sarif.NewTextMessage(f.Flow))

	result.WithCodeFlows([]*sarif.CodeFlow{codeFlow})
}
