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

// Package pyast loads Python source into a Tree-sitter syntax tree and
// classifies nodes into the tagged variant the taint tracer consumes.
package pyast

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Kind tags a Node with the node category the tracer's provenance
// classifier switches on. Every other Tree-sitter node type collapses to
// KindOther.
type Kind int

const (
	KindOther Kind = iota
	KindName
	KindAttribute
	KindSubscript
	KindCall
	KindConstant
	KindBinOpAdd
	KindAssign
	KindWith
	KindFunctionDef
)

// Node wraps a *sitter.Node together with the source bytes it was parsed
// from, so callers never have to thread content separately.
type Node struct {
	n       *sitter.Node
	content []byte
}

// WrapNode attaches source bytes to a raw Tree-sitter node. Returns the
// zero Node (IsNil() == true) for a nil input.
func WrapNode(n *sitter.Node, content []byte) Node {
	return Node{n: n, content: content}
}

// IsNil reports whether this wraps no underlying node.
func (n Node) IsNil() bool { return n.n == nil }

// Raw returns the underlying Tree-sitter node, for callers that need direct
// access (e.g. field lookups not yet wrapped here).
func (n Node) Raw() *sitter.Node { return n.n }

// Text returns the verbatim source text spanned by this node.
func (n Node) Text() string {
	if n.n == nil {
		return ""
	}
	return string(n.content[n.n.StartByte():n.n.EndByte()])
}

// Line returns the 1-indexed source line this node starts on.
func (n Node) Line() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.StartPoint().Row) + 1
}

// Type returns the raw Tree-sitter node type string.
func (n Node) Type() string {
	if n.n == nil {
		return ""
	}
	return n.n.Type()
}

// Kind classifies this node into the tagged variant the tracer switches on.
func (n Node) Kind() Kind {
	if n.n == nil {
		return KindOther
	}
	switch n.n.Type() {
	case "identifier":
		return KindName
	case "attribute":
		return KindAttribute
	case "subscript":
		return KindSubscript
	case "call":
		return KindCall
	case "string", "integer", "float", "true", "false", "none":
		return KindConstant
	case "binary_operator":
		if n.operatorText() == "+" {
			return KindBinOpAdd
		}
		return KindOther
	case "assignment":
		return KindAssign
	case "with_statement":
		return KindWith
	case "function_definition":
		return KindFunctionDef
	default:
		return KindOther
	}
}

func (n Node) operatorText() string {
	if op := n.n.ChildByFieldName("operator"); op != nil {
		return string(n.content[op.StartByte():op.EndByte()])
	}
	// Fallback: the operator token sits between left and right as an
	// unnamed child when the grammar doesn't expose a field for it.
	for i := 0; i < int(n.n.ChildCount()); i++ {
		c := n.n.Child(i)
		if c.Type() == "+" {
			return "+"
		}
	}
	return ""
}

// Child wraps a field-named child, preserving nil-ness.
func (n Node) Child(field string) Node {
	if n.n == nil {
		return Node{}
	}
	return WrapNode(n.n.ChildByFieldName(field), n.content)
}

// ChildAt wraps the i-th positional child.
func (n Node) ChildAt(i int) Node {
	if n.n == nil || i < 0 || i >= int(n.n.ChildCount()) {
		return Node{}
	}
	return WrapNode(n.n.Child(i), n.content)
}

// ChildCount returns the number of positional children.
func (n Node) ChildCount() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.ChildCount())
}

// Walk visits this node and every descendant in preorder, matching the
// traversal order `ast.walk` uses in the original Python implementation
// closely enough for the tracer's assignment/with-binding scans, which
// don't depend on exact ordering (see spec.md §5's order-independence
// note).
func (n Node) Walk(visit func(Node) bool) {
	if n.n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.n.ChildCount()); i++ {
		n.ChildAt(i).Walk(visit)
	}
}

// CallFunction returns the callee sub-expression of a call node.
func (n Node) CallFunction() Node { return n.Child("function") }

// CallArguments returns the positional+keyword argument list node of a
// call node.
func (n Node) CallArguments() Node { return n.Child("arguments") }

// PositionalArgs returns the call's positional argument expressions, in
// source order, skipping keyword arguments.
func (n Node) PositionalArgs() []Node {
	args := n.CallArguments()
	if args.IsNil() {
		return nil
	}
	var out []Node
	for i := 0; i < args.ChildCount(); i++ {
		c := args.ChildAt(i)
		switch c.Type() {
		case "(", ")", ",", "keyword_argument":
			continue
		default:
			out = append(out, c)
		}
	}
	return out
}

// AttributeObject returns the base expression of an attribute access
// (the `x` in `x.attr`).
func (n Node) AttributeObject() Node { return n.Child("object") }

// AttributeName returns the attribute identifier text of an attribute
// access (the `attr` in `x.attr`).
func (n Node) AttributeName() string { return n.Child("attribute").Text() }

// SubscriptValue returns the base expression being indexed.
func (n Node) SubscriptValue() Node { return n.Child("value") }

// SubscriptIndex returns the first (and typically only) subscript key
// expression.
func (n Node) SubscriptIndex() Node {
	if n.n == nil {
		return Node{}
	}
	for i := 0; i < n.ChildCount(); i++ {
		c := n.ChildAt(i)
		switch c.Type() {
		case "[", "]", ",":
			continue
		case "subscript":
			continue
		default:
			// skip the value child itself, which precedes '['
			if c.n == n.Child("value").n {
				continue
			}
			return c
		}
	}
	return Node{}
}

// AssignTargets returns the left-hand-side target expressions of a simple
// assignment. Tuple/list unpacking targets are flattened one level, which
// is sufficient for the tracer's `ast.Name` target check.
func (n Node) AssignTargets() []Node {
	left := n.Child("left")
	if left.IsNil() {
		return nil
	}
	if left.Type() == "pattern_list" || left.Type() == "tuple_pattern" {
		var out []Node
		for i := 0; i < left.ChildCount(); i++ {
			c := left.ChildAt(i)
			if c.Type() == "," {
				continue
			}
			out = append(out, c)
		}
		return out
	}
	return []Node{left}
}

// AssignValue returns the right-hand-side expression of a simple
// assignment.
func (n Node) AssignValue() Node { return n.Child("right") }

// BinOpLeft returns the left operand of a binary operator node.
func (n Node) BinOpLeft() Node { return n.Child("left") }

// BinOpRight returns the right operand of a binary operator node.
func (n Node) BinOpRight() Node { return n.Child("right") }

// FunctionName returns the short name of a function_definition node.
func (n Node) FunctionName() string { return n.Child("name").Text() }

// FunctionBody returns the block node holding a function's statements.
func (n Node) FunctionBody() Node { return n.Child("body") }

// FunctionParameters returns the parameters node of a function_definition.
func (n Node) FunctionParameters() Node { return n.Child("parameters") }

// BodyStatements returns the top-level statements inside a block node.
func (n Node) BodyStatements() []Node {
	if n.n == nil {
		return nil
	}
	var out []Node
	for i := 0; i < n.ChildCount(); i++ {
		c := n.ChildAt(i)
		switch c.Type() {
		case ":", "NEWLINE", "INDENT", "DEDENT", "comment":
			continue
		default:
			out = append(out, c)
		}
	}
	return out
}

// IsReturnStatement reports whether this node is a `return` statement.
func (n Node) IsReturnStatement() bool { return n.Type() == "return_statement" }

// ReturnValue returns the expression of a `return` statement, or a nil
// Node for a bare `return`.
func (n Node) ReturnValue() Node {
	if n.n == nil {
		return Node{}
	}
	for i := 0; i < n.ChildCount(); i++ {
		c := n.ChildAt(i)
		if c.Type() != "return" {
			return c
		}
	}
	return Node{}
}

// Decorators returns the decorator expression nodes attached to a
// function_definition or class_definition, unwrapping the surrounding
// `decorated_definition` node the Tree-sitter Python grammar uses.
func (n Node) Decorators() []Node {
	if n.n == nil {
		return nil
	}
	parent := n.n.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var out []Node
	for i := 0; i < int(parent.ChildCount()); i++ {
		c := parent.Child(i)
		if c.Type() == "decorator" {
			// A decorator node wraps '@' + expression; the expression is
			// the single non-'@' child.
			for j := 0; j < int(c.ChildCount()); j++ {
				e := c.Child(j)
				if e.Type() != "@" {
					out = append(out, WrapNode(e, n.content))
				}
			}
		}
	}
	return out
}

// DecoratorKeywordArg returns the value node of a keyword argument named
// key within a call node's argument list, or a nil Node if absent.
func (n Node) DecoratorKeywordArg(key string) Node {
	args := n.CallArguments()
	if args.IsNil() {
		return Node{}
	}
	for i := 0; i < args.ChildCount(); i++ {
		c := args.ChildAt(i)
		if c.Type() != "keyword_argument" {
			continue
		}
		if c.Child("name").Text() == key {
			return c.Child("value")
		}
	}
	return Node{}
}

// StringValue returns the decoded text of a Python string literal node
// (strips the surrounding quote characters and common prefixes). Returns
// ok=false for non-string constants.
func (n Node) StringValue() (string, bool) {
	if n.n == nil || n.Type() != "string" {
		return "", false
	}
	raw := n.Text()
	// Strip a string/byte/raw/f prefix (b, r, f, u, and combinations).
	i := 0
	for i < len(raw) && strings.ContainsRune("bBrRfFuU", rune(raw[i])) {
		i++
	}
	raw = raw[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			return raw[len(q) : len(raw)-len(q)], true
		}
	}
	return raw, true
}

// ConstantValue returns the Python constant literal represented by this
// node: a decoded string for string literals, a float64 for numeric
// literals, a bool for true/false, or nil for None/anything else.
func (n Node) ConstantValue() any {
	switch n.Type() {
	case "string":
		s, _ := n.StringValue()
		return s
	case "integer":
		if v, err := strconv.ParseInt(strings.ReplaceAll(n.Text(), "_", ""), 0, 64); err == nil {
			return float64(v)
		}
		return float64(0)
	case "float":
		if v, err := strconv.ParseFloat(strings.ReplaceAll(n.Text(), "_", ""), 64); err == nil {
			return v
		}
		return float64(0)
	case "true":
		return true
	case "false":
		return false
	default:
		return nil
	}
}
