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

package pyast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Verbosity controls warning visibility during parsing, matching
// spec.md §4.2's quiet/normal/verbose policy.
type Verbosity int

const (
	VerbosityNormal Verbosity = iota
	VerbosityQuiet
	VerbosityVerbose
)

// ParseVerbosity maps a CLI --scan-verbosity string to a Verbosity value.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "", "normal":
		return VerbosityNormal, nil
	case "quiet":
		return VerbosityQuiet, nil
	case "verbose":
		return VerbosityVerbose, nil
	default:
		return VerbosityNormal, fmt.Errorf("unknown scan verbosity %q", s)
	}
}

// Kind of failure the AST Loader can report, matching spec.md §4.2.
type ErrorKind int

const (
	_ ErrorKind = iota
	ParseError
	PathEscape
	IoError
)

func (k ErrorKind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case PathEscape:
		return "PathEscape"
	case IoError:
		return "IoError"
	default:
		return "Unknown"
	}
}

// LoadError is returned by Load on any failure; Kind discriminates the
// three variants spec.md §4.2 defines.
type LoadError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// File is the result of loading one source file: its syntax tree, the raw
// source bytes it was parsed from, and the path it was parsed under.
type File struct {
	Path   string
	Source []byte
	Tree   *sitter.Tree
	Root   Node
}

// Close releases the underlying Tree-sitter tree. Safe to call on a zero
// value.
func (f *File) Close() {
	if f != nil && f.Tree != nil {
		f.Tree.Close()
	}
}

var (
	parserPool = sync.Pool{
		New: func() any {
			p := sitter.NewParser()
			p.SetLanguage(python.GetLanguage())
			return p
		},
	}
)

// isPathWithinRoot mirrors ast_parser.py's _is_path_within_root: resolve
// both paths to absolute form and require root to be a prefix component of
// path.
func isPathWithinRoot(path, root string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absRoot = filepath.Clean(absRoot)
	absPath = filepath.Clean(absPath)
	if absPath == absRoot {
		return true, nil
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, nil
	}
	if rel == "." {
		return true, nil
	}
	return !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel), nil
}

// Load parses the file at path into a syntax tree, enforcing the
// safe-root and verbosity policy described in spec.md §4.2.
//
// safeRoot may be empty, in which case no root confinement is applied (the
// original defaults to os.Getcwd(); callers that want that behavior should
// pass it explicitly).
func Load(path string, verbosity Verbosity, safeRoot string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if safeRoot != "" {
		ok, err := isPathWithinRoot(path, safeRoot)
		if err != nil {
			return nil, &LoadError{Kind: IoError, Path: path, Err: err}
		}
		if !ok {
			return nil, &LoadError{
				Kind: PathEscape,
				Path: path,
				Err:  fmt.Errorf("access to file %q is not allowed (outside of root directory %q)", path, safeRoot),
			}
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: IoError, Path: path, Err: err}
	}
	source = toValidUTF8(source)

	parserAny := parserPool.Get()
	parser, ok := parserAny.(*sitter.Parser)
	if !ok {
		return nil, &LoadError{Kind: ParseError, Path: path, Err: errors.New("invalid parser type from pool")}
	}
	defer parserPool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		if verbosity != VerbosityQuiet {
			logger.Error("pyast.load.parse_failed", "path", path, "err", err)
		}
		return nil, &LoadError{Kind: ParseError, Path: path, Err: err}
	}

	root := tree.RootNode()
	if root.HasError() {
		errCount := countErrors(root)
		if errCount > 0 {
			tree.Close()
			if verbosity != VerbosityQuiet {
				logger.Error("pyast.load.parse_failed", "path", path, "syntax_error_count", errCount)
			}
			return nil, &LoadError{
				Kind: ParseError,
				Path: path,
				Err:  fmt.Errorf("%d syntax error node(s) in parse tree", errCount),
			}
		}
	}

	return &File{
		Path:   path,
		Source: source,
		Tree:   tree,
		Root:   WrapNode(root, source),
	}, nil
}

func countErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.Type() == "ERROR" || node.IsMissing() {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrors(node.Child(i))
	}
	return count
}

// toValidUTF8 mirrors the original's lossy UTF-8 decode (Python's
// errors="ignore") by dropping bytes that don't form valid UTF-8 rather
// than failing the read outright.
func toValidUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			i++
			continue
		}
		out = append(out, b[i:i+size]...)
		i += size
	}
	return out
}
