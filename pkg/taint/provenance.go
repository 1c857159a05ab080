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

package taint

import (
	"fmt"
	"strings"

	"github.com/taintlens/taintlens/pkg/catalog"
	"github.com/taintlens/taintlens/pkg/pyast"
	"github.com/taintlens/taintlens/pkg/resolve"
)

// maxTraceDepth caps trace_source's recursion, matching the original's
// `depth > 5` guard.
const maxTraceDepth = 5

// provenance is the (initial_source, flow, risk) triple trace_source
// returns at every recursion level.
type provenance struct {
	InitialSource string
	Flow          string
	Risk          string
}

func unknownProvenance() provenance {
	return provenance{"unknown source", "unknown source", "MEDIUM"}
}

// traceSource recurses through node's origin, classifying it into a
// provenance triple. This ports analyzer.py's SinkVisitor.trace_source
// node kind for node kind, including its exact string formatting.
func (t *Tracer) traceSource(n pyast.Node, depth int) provenance {
	if depth > maxTraceDepth {
		return provenance{"unknown", "unknown (recursion limit)", "MEDIUM"}
	}

	switch n.Kind() {
	case pyast.KindName:
		return t.traceName(n, depth)
	case pyast.KindCall:
		return t.traceCall(n, depth)
	case pyast.KindConstant:
		return traceConstant(n)
	case pyast.KindAttribute:
		return traceAttribute(n)
	case pyast.KindSubscript:
		return t.traceSubscript(n, depth)
	case pyast.KindBinOpAdd:
		return t.traceBinOpAdd(n, depth)
	default:
		return unknownProvenance()
	}
}

func (t *Tracer) traceName(n pyast.Node, depth int) provenance {
	name := n.Text()
	if t.taintedFiles[name] {
		s := fmt.Sprintf("%s (tainted from file upload)", name)
		return provenance{s, s, "HIGH"}
	}

	assign := t.findAssignment(name)
	if !assign.IsNil() {
		if assign.Kind() == pyast.KindSubscript && isRequestFilesSubscript(assign) {
			s := fmt.Sprintf("%s (direct stream from request.files)", name)
			return provenance{s, s, "HIGH"}
		}

		inner := t.traceSource(assign, depth+1)
		fullFlow := fmt.Sprintf("%s (assigned at line %d) → %s", name, assign.Line(), inner.Flow)
		return provenance{inner.InitialSource, fullFlow, inner.Risk}
	}

	s := fmt.Sprintf("%s (unresolved)", name)
	return provenance{s, s, "MEDIUM"}
}

// isRequestFilesSubscript reports whether n is a `request.files[...]`
// subscript expression.
func isRequestFilesSubscript(n pyast.Node) bool {
	base := n.SubscriptValue()
	if base.Kind() != pyast.KindAttribute || base.AttributeName() != "files" {
		return false
	}
	obj := base.AttributeObject()
	return obj.Kind() == pyast.KindName && obj.Text() == "request"
}

func (t *Tracer) traceCall(n pyast.Node, depth int) provenance {
	res := resolve.Resolve(n, t.fi, t.pi)
	funcName := res.QualifiedName

	// "open" is itself a catalog source entry, so this branch always
	// handles it; the original's separate un-nested `if func_name ==
	// "open"` check below this one is consequently unreachable and is not
	// ported (see DESIGN.md).
	if catalog.MatchSource(funcName) {
		if funcName == "open" {
			if args := n.PositionalArgs(); len(args) > 0 {
				inner := t.traceSource(args[0], depth+1)
				return provenance{inner.InitialSource, fmt.Sprintf("open(%s)", inner.Flow), inner.Risk}
			}
		}
		return provenance{funcName + " (call)", funcName + " (call)", "HIGH"}
	}

	if strings.HasSuffix(funcName, "os.path.join") {
		if args := n.PositionalArgs(); len(args) > 0 {
			var labels []string
			allSafe := true
			for _, arg := range args {
				sub := t.traceSource(arg, depth+1)
				labels = append(labels, sub.Flow)
				if strings.Contains(sub.Flow, "unknown") || strings.Contains(sub.Flow, "input") || strings.Contains(sub.Flow, "tainted") {
					allSafe = false
				}
			}
			joined := "os.path.join(" + strings.Join(labels, ", ") + ")"
			risk := "LOW"
			if !allSafe {
				risk = "HIGH"
			}
			return provenance{joined, joined, risk}
		}
	}

	if res.Definition != nil {
		for _, stmt := range res.Definition.Node.FunctionBody().BodyStatements() {
			if stmt.IsReturnStatement() {
				return t.traceSource(stmt.ReturnValue(), depth+1)
			}
		}
	}

	return unknownProvenance()
}

func traceConstant(n pyast.Node) provenance {
	v := n.ConstantValue()
	if s, ok := v.(string); ok {
		lower := strings.ToLower(s)
		if strings.Contains(lower, "pickle") || strings.Contains(lower, "pkl") {
			return provenance{fmt.Sprintf("pickle file: '%s'", s), fmt.Sprintf("'%s' (pickle file)", s), "HIGH"}
		}
		return provenance{fmt.Sprintf("file: '%s'", s), fmt.Sprintf("'%s'", s), "MEDIUM"}
	}
	s := fmt.Sprintf("constant '%v'", v)
	return provenance{s, s, "LOW"}
}

func attributePath(n pyast.Node) string {
	var parts []string
	cur := n
	for cur.Kind() == pyast.KindAttribute {
		parts = append([]string{cur.AttributeName()}, parts...)
		cur = cur.AttributeObject()
	}
	if cur.Kind() == pyast.KindName {
		parts = append([]string{cur.Text()}, parts...)
	}
	return strings.Join(parts, ".")
}

var highRiskRequestAttributes = map[string]bool{
	"request.form":   true,
	"request.args":   true,
	"request.values": true,
	"request.json":   true,
	"request.data":   true,
	"request.POST":   true,
	"request.GET":    true,
}

func traceAttribute(n pyast.Node) provenance {
	attr := attributePath(n)
	risk := "LOW"
	if highRiskRequestAttributes[attr] {
		risk = "HIGH"
	}
	s := fmt.Sprintf("%s (attribute)", attr)
	return provenance{s, s, risk}
}

func subscriptDescriptor(idx pyast.Node) string {
	switch idx.Kind() {
	case pyast.KindConstant:
		return fmt.Sprintf("['%v']", idx.ConstantValue())
	case pyast.KindName:
		return fmt.Sprintf("[%s]", idx.Text())
	default:
		return "[...]"
	}
}

func (t *Tracer) traceSubscript(n pyast.Node, depth int) provenance {
	value := t.traceSource(n.SubscriptValue(), depth+1)
	desc := subscriptDescriptor(n.SubscriptIndex())

	switch {
	case strings.Contains(value.Flow, "request.form"):
		s := fmt.Sprintf("request.form%s (HTTP POST form data)", desc)
		return provenance{s, s, "HIGH"}
	case strings.Contains(value.Flow, "request.args"):
		s := fmt.Sprintf("request.args%s (HTTP GET query parameter)", desc)
		return provenance{s, s, "HIGH"}
	case strings.Contains(value.Flow, "request.json"):
		s := fmt.Sprintf("request.json%s (HTTP JSON body)", desc)
		return provenance{s, s, "HIGH"}
	case strings.Contains(value.Flow, "request.files"):
		s := fmt.Sprintf("request.files%s (HTTP file upload)", desc)
		return provenance{s, s, "HIGH"}
	}

	return provenance{value.InitialSource, value.Flow + desc, value.Risk}
}

func (t *Tracer) traceBinOpAdd(n pyast.Node, depth int) provenance {
	left := t.traceSource(n.BinOpLeft(), depth+1)
	right := t.traceSource(n.BinOpRight(), depth+1)
	return provenance{left.InitialSource, fmt.Sprintf("%s + %s", left.Flow, right.Flow), "LOW"}
}
