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

// Package index builds the project-wide symbol and import table: a
// File Indexer that walks a single syntax tree for imports and function
// definitions, and a Project Indexer that orchestrates discovery, optional
// legacy-dialect upgrade, and per-file indexing across a whole target.
package index

import (
	"github.com/taintlens/taintlens/pkg/pyast"
)

// FunctionInfo is a function definition record: its short name, its
// syntax-tree node, and the file it was defined in.
type FunctionInfo struct {
	Name     string
	Node     pyast.Node
	Filename string
}

// FileIndex owns one file's syntax tree, raw source, import map, and
// function map. Built once per file during indexing and read-only
// thereafter (spec.md §3's "File index" invariant).
type FileIndex struct {
	Filename  string
	Tree      *pyast.File
	Functions map[string]*FunctionInfo
	Imports   map[string]string // alias -> qualified name
}

// newFileIndex allocates an empty FileIndex for filename.
func newFileIndex(filename string, tree *pyast.File) *FileIndex {
	return &FileIndex{
		Filename:  filename,
		Tree:      tree,
		Functions: make(map[string]*FunctionInfo),
		Imports:   make(map[string]string),
	}
}

// indexFile walks root in preorder, recording import aliases and function
// definitions per spec.md §4.3 (File Indexer, C3).
func indexFile(fi *FileIndex, root pyast.Node) {
	root.Walk(func(n pyast.Node) bool {
		switch n.Type() {
		case "import_statement":
			indexImportStatement(fi, n)
		case "import_from_statement":
			indexImportFromStatement(fi, n)
		case "function_definition":
			indexFunctionDefinition(fi, n)
		}
		return true
	})
}

// indexImportStatement handles `import a.b.c` and `import a.b.c as x`,
// matching indexer.py's visit_Import: alias -> real dotted module name.
func indexImportStatement(fi *FileIndex, n pyast.Node) {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.ChildAt(i)
		switch c.Type() {
		case "dotted_name":
			name := c.Text()
			fi.Imports[name] = name
		case "aliased_import":
			real := c.Child("name").Text()
			alias := c.Child("alias").Text()
			if real != "" && alias != "" {
				fi.Imports[alias] = real
			}
		}
	}
}

// samePosition reports whether a and b denote the same syntax-tree node,
// identified by byte range rather than pointer identity since a node
// reached via a field lookup and one reached by positional index are not
// guaranteed to be the same Go value.
func samePosition(a, b pyast.Node) bool {
	if a.IsNil() || b.IsNil() {
		return false
	}
	return a.Raw().StartByte() == b.Raw().StartByte() && a.Raw().EndByte() == b.Raw().EndByte()
}

// indexImportFromStatement handles `from module import name [as alias]`,
// matching visit_ImportFrom: alias -> "<module>.<name>". Wildcard imports
// (`from x import *`) are skipped, matching spec.md §4.3.
func indexImportFromStatement(fi *FileIndex, n pyast.Node) {
	moduleNode := n.Child("module_name")
	module := moduleNode.Text()
	if module == "" {
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		c := n.ChildAt(i)
		if samePosition(c, moduleNode) {
			// The module_name field child surfaces again as a positional
			// child; it names the module being imported from, not an
			// imported symbol, and must not be recorded as one.
			continue
		}
		switch c.Type() {
		case "dotted_name", "identifier":
			name := c.Text()
			if name == "" || name == "import" {
				continue
			}
			fi.Imports[name] = module + "." + name
		case "aliased_import":
			real := c.Child("name").Text()
			alias := c.Child("alias").Text()
			if real != "" && alias != "" {
				fi.Imports[alias] = module + "." + real
			}
		case "wildcard_import", "*":
			// skip: no alias to record
		}
	}
}

// indexFunctionDefinition records a function definition keyed by its
// short name. Nested functions visited later in preorder overwrite the
// earlier record for the same name, matching indexer.py's dict-assignment
// last-write-wins semantics (spec.md §4.3).
func indexFunctionDefinition(fi *FileIndex, n pyast.Node) {
	name := n.FunctionName()
	if name == "" {
		return
	}
	fi.Functions[name] = &FunctionInfo{
		Name:     name,
		Node:     n,
		Filename: fi.Filename,
	}
}
