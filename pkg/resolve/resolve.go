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

// Package resolve turns a call expression's callee sub-tree into a fully
// qualified dotted name and, where possible, the function definition it
// refers to elsewhere in the project.
package resolve

import (
	"strings"

	"github.com/taintlens/taintlens/pkg/catalog"
	"github.com/taintlens/taintlens/pkg/index"
	"github.com/taintlens/taintlens/pkg/pyast"
)

// QualifiedName walks a call's callee expression into a dotted name,
// substituting import aliases along the way. A bare name `f` resolves
// through imports to its qualified form if `f` was itself imported
// (`import f`); otherwise it is returned unqualified, matching
// extract_full_func_name in the original implementation exactly.
func QualifiedName(callee pyast.Node, imports map[string]string) string {
	switch callee.Kind() {
	case pyast.KindName:
		name := callee.Text()
		if qualified, ok := imports[name]; ok {
			return qualified
		}
		return name
	case pyast.KindAttribute:
		// Only substitutes through imports at the chain's leftmost
		// identifier; if that root isn't a plain name (e.g. the callee of
		// `foo().bar()`), extract_full_func_name yields "" entirely rather
		// than a partial dotted name.
		root := callee
		var attrs []string
		for root.Kind() == pyast.KindAttribute {
			attrs = append([]string{root.AttributeName()}, attrs...)
			root = root.AttributeObject()
		}
		if root.Kind() != pyast.KindName {
			return ""
		}
		base := root.Text()
		if qualified, ok := imports[base]; ok {
			base = qualified
		}
		return strings.Join(append([]string{base}, attrs...), ".")
	default:
		return ""
	}
}

// Resolution is the outcome of resolving one call expression: its
// qualified callee name, and the function definition it points at when
// resolvable within the project (nil for sinks, stdlib/third-party calls,
// and anything the resolver can't track down).
type Resolution struct {
	QualifiedName string
	Definition    *index.FunctionInfo
}

// Resolve determines the qualified name of a call's callee and, unless the
// name is a known sink, attempts to locate the function it defines within
// the project index. This ports resolver.py's resolve_function_call
// exactly: sinks short-circuit before any lookup, two-part names are
// resolved through the importing alias's source file, one-part names
// check the local file first and then any project file that re-exports a
// same-named function.
func Resolve(call pyast.Node, fi *index.FileIndex, pi *index.ProjectIndex) Resolution {
	qualified := QualifiedName(call.CallFunction(), fi.Imports)
	if qualified == "" {
		return Resolution{}
	}

	if catalog.IsSink(qualified) {
		return Resolution{QualifiedName: qualified}
	}

	parts := strings.Split(qualified, ".")
	switch len(parts) {
	case 2:
		alias, funcName := parts[0], parts[1]
		moduleName, ok := fi.Imports[alias]
		if !ok {
			return Resolution{QualifiedName: qualified}
		}
		suffix := "/" + strings.ReplaceAll(moduleName, ".", "/") + ".py"
		for _, path := range pi.SortedFilePaths() {
			if !strings.HasSuffix(path, suffix) {
				continue
			}
			if def, ok := pi.Files[path].Functions[funcName]; ok {
				return Resolution{QualifiedName: qualified, Definition: def}
			}
		}
		return Resolution{QualifiedName: qualified}

	case 1:
		// A name already imported would have been substituted by
		// QualifiedName above, so fi.Imports[funcName] can only succeed
		// here if the substituted value maps back onto itself (e.g. a
		// bare `import foo`, where imports["foo"] == "foo"); that never
		// yields a dotted re-export to follow. This mirrors the same
		// unreachable branch in resolve_function_call on the original and
		// is kept for parity rather than load-bearing behavior.
		funcName := parts[0]
		if def, ok := fi.Functions[funcName]; ok {
			return Resolution{QualifiedName: qualified, Definition: def}
		}
		fullRef, ok := fi.Imports[funcName]
		if !ok {
			return Resolution{QualifiedName: qualified}
		}
		idx := strings.LastIndex(fullRef, ".")
		if idx < 0 {
			return Resolution{QualifiedName: qualified}
		}
		reExported := fullRef[idx+1:]
		if defs, ok := pi.FunctionMap[reExported]; ok && len(defs) > 0 {
			return Resolution{QualifiedName: qualified, Definition: defs[0]}
		}
		return Resolution{QualifiedName: qualified}

	default:
		return Resolution{QualifiedName: qualified}
	}
}
