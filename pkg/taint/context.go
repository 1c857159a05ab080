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
	"strings"

	"github.com/taintlens/taintlens/pkg/finding"
	"github.com/taintlens/taintlens/pkg/pyast"
)

// fileOperationNamePatterns are substrings of a function's lowercased name
// that mark it as a file-operation function, matching
// is_file_operation_function exactly.
var fileOperationNamePatterns = []string{
	"load", "save", "read", "write", "open", "close", "extract",
	"deserialize", "unpickle", "import", "export", "backup", "restore",
}

// fileOperationDocstringKeywords mark a function's docstring as
// file-related when the name patterns above don't already match.
var fileOperationDocstringKeywords = []string{
	"file", "pickle", "load", "save", "extract", "deserialize",
}

// taskNamePatterns are substrings of a function's lowercased name that mark
// it as a task/job execution function, matching is_task_function exactly.
var taskNamePatterns = []string{
	"task", "job", "work", "execute", "run", "process", "compute",
	"worker", "runner", "handler", "do_work",
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// isFileOperationFunction reports whether node's name or docstring marks it
// as a file-operation function.
func isFileOperationFunction(node pyast.Node) bool {
	if containsAny(strings.ToLower(node.FunctionName()), fileOperationNamePatterns) {
		return true
	}
	docstring, ok := functionDocstring(node)
	if !ok {
		return false
	}
	return containsAny(strings.ToLower(docstring), fileOperationDocstringKeywords)
}

// isTaskFunction reports whether node's name marks it as a task/job
// execution function.
func isTaskFunction(node pyast.Node) bool {
	return containsAny(strings.ToLower(node.FunctionName()), taskNamePatterns)
}

// functionDocstring returns a function's docstring, the string literal
// expression statement its body opens with, if any.
func functionDocstring(node pyast.Node) (string, bool) {
	stmts := node.FunctionBody().BodyStatements()
	if len(stmts) == 0 {
		return "", false
	}
	first := stmts[0]
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return "", false
	}
	inner := first.ChildAt(0)
	return inner.StringValue()
}

// decoratorHTTPRoute inspects one decorator expression for a Flask-style
// (`@app.route(...)`) or Django-style (`@route(...)`) binding, returning
// the endpoint path and the comma-joined HTTP methods list when present.
// Mirrors detect_context's decorator loop, including its early break on the
// first decorator whose callee attribute/name is "route" regardless of
// whether an endpoint path was actually extracted.
func decoratorHTTPRoute(dec pyast.Node) (endpoint, methods string, isRouteDecorator bool) {
	if dec.Kind() != pyast.KindCall {
		return "", "", false
	}
	callee := dec.CallFunction()

	isRoute := false
	switch callee.Kind() {
	case pyast.KindAttribute:
		isRoute = callee.AttributeName() == "route"
	case pyast.KindName:
		isRoute = callee.Text() == "route"
	}
	if !isRoute {
		return "", "", false
	}

	if args := dec.PositionalArgs(); len(args) > 0 {
		if s, ok := args[0].StringValue(); ok {
			endpoint = s
		}
	}
	if callee.Kind() == pyast.KindAttribute {
		if methodsNode := dec.DecoratorKeywordArg("methods"); !methodsNode.IsNil() {
			if methodsNode.Type() == "list" {
				var parts []string
				for i := 0; i < methodsNode.ChildCount(); i++ {
					c := methodsNode.ChildAt(i)
					if s, ok := c.StringValue(); ok {
						parts = append(parts, s)
					}
				}
				methods = strings.Join(parts, ", ")
			} else if s, ok := methodsNode.StringValue(); ok {
				methods = s
			}
		}
	}
	return endpoint, methods, true
}

// detectFunctionContexts walks every function definition in root and
// builds the name -> Context map the tracer consults when emitting
// findings. This follows an if/else-if precedence — an HttpEndpoint
// decorator match suppresses the FileOperation/TaskExecution checks
// entirely, and FileOperation wins over TaskExecution when a function's
// name or docstring would match both — which is the documented behavior
// and takes precedence over the original analyzer's sequential,
// unconditional-overwrite checks (see DESIGN.md's Open Question decision).
func detectFunctionContexts(root pyast.Node) map[string]finding.Context {
	contexts := make(map[string]finding.Context)

	root.Walk(func(n pyast.Node) bool {
		if n.Kind() != pyast.KindFunctionDef {
			return true
		}
		name := n.FunctionName()
		ctx := finding.Context{}

		isRouted := false
		for _, dec := range n.Decorators() {
			endpoint, methods, isRoute := decoratorHTTPRoute(dec)
			if !isRoute {
				continue
			}
			ctx.HTTPEndpoint = endpoint
			ctx.HTTPMethod = methods
			isRouted = true
			break
		}

		switch {
		case isRouted:
			// handled above
		case isFileOperationFunction(n):
			ctx.OperationType = "file_operation"
			ctx.FunctionName = name
		case isTaskFunction(n):
			ctx.OperationType = "task_execution"
			ctx.FunctionName = name
		}

		if !ctx.IsZero() {
			contexts[name] = ctx
		}
		return true
	})

	return contexts
}
