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

// Package taint walks one file's syntax tree looking for insecure
// deserialization sinks, tracing the provenance of each sink call's
// argument back to an HTTP request, a file, or an unresolved origin.
package taint

import (
	"fmt"
	"strings"

	"github.com/taintlens/taintlens/pkg/catalog"
	"github.com/taintlens/taintlens/pkg/finding"
	"github.com/taintlens/taintlens/pkg/index"
	"github.com/taintlens/taintlens/pkg/pyast"
	"github.com/taintlens/taintlens/pkg/resolve"
)

// Tracer visits one file's syntax tree, matching analyzer.py's
// SinkVisitor: it tracks variables tainted via an uploaded file or a path
// written by `save()`, detects per-function HTTP/file-operation/
// task-execution context, and emits a Finding for every sink call.
type Tracer struct {
	fi *index.FileIndex
	pi *index.ProjectIndex

	taintedFiles    map[string]bool
	contexts        map[string]finding.Context
	currentFunction string
	findings        []finding.Finding
}

// NewTracer builds a Tracer for one file within a fully-built project
// index.
func NewTracer(fi *index.FileIndex, pi *index.ProjectIndex) *Tracer {
	return &Tracer{
		fi:           fi,
		pi:           pi,
		taintedFiles: make(map[string]bool),
		contexts:     detectFunctionContexts(fi.Tree.Root),
	}
}

// Run walks the file's syntax tree and returns every finding discovered,
// matching analyze_index's per-file `visitor.visit(file_index.tree)` plus
// `findings.extend(visitor.findings)`.
func (t *Tracer) Run() []finding.Finding {
	t.visit(t.fi.Tree.Root)
	return t.findings
}

func (t *Tracer) visit(n pyast.Node) {
	if n.IsNil() {
		return
	}
	switch n.Kind() {
	case pyast.KindFunctionDef:
		prev := t.currentFunction
		t.currentFunction = n.FunctionName()
		t.visitChildren(n)
		t.currentFunction = prev
		return
	case pyast.KindAssign:
		t.visitAssign(n)
	case pyast.KindCall:
		t.visitCall(n)
	}
	t.visitChildren(n)
}

func (t *Tracer) visitChildren(n pyast.Node) {
	for i := 0; i < n.ChildCount(); i++ {
		t.visit(n.ChildAt(i))
	}
}

// visitAssign marks the left-hand targets of `x = request.files[...]` as
// tainted, matching visit_Assign.
func (t *Tracer) visitAssign(n pyast.Node) {
	value := n.AssignValue()
	if value.Kind() != pyast.KindSubscript || !isRequestFilesSubscript(value) {
		return
	}
	for _, target := range n.AssignTargets() {
		if target.Kind() == pyast.KindName {
			t.taintedFiles[target.Text()] = true
		}
	}
}

// visitCall propagates taint through `tainted.save(path)` calls and emits
// a Finding for any call whose resolved name is a known sink, matching
// visit_Call.
func (t *Tracer) visitCall(n pyast.Node) {
	callee := n.CallFunction()
	calleeName := resolve.QualifiedName(callee, t.fi.Imports)

	if callee.Kind() == pyast.KindAttribute && callee.AttributeName() == "save" {
		obj := callee.AttributeObject()
		args := n.PositionalArgs()
		if obj.Kind() == pyast.KindName && len(args) > 0 && t.taintedFiles[obj.Text()] {
			if args[0].Kind() == pyast.KindName {
				t.taintedFiles[args[0].Text()] = true
			}
		}
	}

	if !catalog.IsSink(calleeName) {
		return
	}

	var sourceNode pyast.Node
	if args := n.PositionalArgs(); len(args) > 0 {
		sourceNode = args[0]
	}
	trace := func() (p provenance) {
		defer func() {
			if r := recover(); r != nil {
				p = provenance{"error in source tracing", "error in source tracing", "MEDIUM"}
			}
		}()
		return t.traceSource(sourceNode, 0)
	}()

	ctx := t.contexts[t.currentFunction]
	t.findings = append(t.findings, finding.Finding{
		Sink:          calleeName,
		InitialSource: trace.InitialSource,
		Flow:          enhanceFlow(trace.Flow, ctx),
		Filename:      t.fi.Filename,
		Line:          n.Line(),
		Risk:          trace.Risk,
		Context:       ctx,
	})
}

// enhanceFlow prefixes a traced flow description with the HTTP route or
// operation context it ran under, matching visit_Call's enhanced_flow
// construction exactly.
func enhanceFlow(flow string, ctx finding.Context) string {
	switch {
	case ctx.HTTPEndpoint != "" && strings.Contains(flow, "request."):
		method := ctx.HTTPMethod
		if method == "" {
			method = "GET"
		}
		return fmt.Sprintf("HTTP %s %s → %s", method, ctx.HTTPEndpoint, flow)
	case ctx.OperationType == "file_operation":
		name := ctx.FunctionName
		if name == "" {
			name = "unknown"
		}
		return fmt.Sprintf("File Operation (%s) → %s", name, flow)
	case ctx.OperationType == "task_execution":
		name := ctx.FunctionName
		if name == "" {
			name = "unknown"
		}
		return fmt.Sprintf("Task Execution (%s) → %s", name, flow)
	default:
		return flow
	}
}

// findAssignment locates the right-hand side of the most recent textual
// assignment to varname anywhere in the file, or the call expression bound
// by a `with ... as varname:` clause, matching find_assignment.
func (t *Tracer) findAssignment(varname string) pyast.Node {
	var result pyast.Node
	t.fi.Tree.Root.Walk(func(n pyast.Node) bool {
		switch n.Kind() {
		case pyast.KindAssign:
			for _, target := range n.AssignTargets() {
				if target.Kind() == pyast.KindName && target.Text() == varname {
					result = n.AssignValue()
				}
			}
		case pyast.KindWith:
			if ctxExpr, alias, ok := withBinding(n); ok && alias == varname && ctxExpr.Kind() == pyast.KindCall {
				result = ctxExpr
			}
		}
		return true
	})
	return result
}

// withBinding extracts the context expression and bound name of the first
// `... as name` clause within a with-statement subtree, best-effort over
// the Tree-sitter Python grammar's `as_pattern` node shape.
func withBinding(n pyast.Node) (pyast.Node, string, bool) {
	var ctxExpr, aliasChild pyast.Node
	found := false
	n.Walk(func(c pyast.Node) bool {
		if found {
			return false
		}
		if c.Type() != "as_pattern" {
			return true
		}
		for i := 0; i < c.ChildCount(); i++ {
			ch := c.ChildAt(i)
			if ch.Type() == "as" {
				continue
			}
			if ctxExpr.IsNil() {
				ctxExpr = ch
			} else {
				aliasChild = ch
			}
		}
		found = !ctxExpr.IsNil() && !aliasChild.IsNil()
		return false
	})
	if !found {
		return pyast.Node{}, "", false
	}
	return ctxExpr, aliasChild.Text(), true
}
