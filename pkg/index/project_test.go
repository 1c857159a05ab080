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

package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taintlens/taintlens/pkg/pyast"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildProject_IndexesImportsAndFunctions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", `
import pickle
from helpers import get_input as gi

def handler():
    return gi()
`)

	pi, err := BuildProject(context.Background(), []string{path}, Options{Verbosity: pyast.VerbosityNormal})
	require.NoError(t, err)
	defer pi.Close()

	require.Contains(t, pi.Files, path)
	fi := pi.Files[path]
	assert.Equal(t, "pickle", fi.Imports["pickle"])
	assert.Equal(t, "helpers.get_input", fi.Imports["gi"])
	assert.Contains(t, fi.Functions, "handler")
	assert.Contains(t, pi.FunctionMap, "handler")
	assert.NotEmpty(t, pi.ScanID)
}

func TestBuildProject_SkipsLegacyDialectByDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "legacy.py", "print \"hello\"\n")

	pi, err := BuildProject(context.Background(), []string{path}, Options{Verbosity: pyast.VerbosityNormal})
	require.NoError(t, err)
	defer pi.Close()

	assert.NotContains(t, pi.Files, path)
	require.Len(t, pi.Skipped, 1)
	assert.Equal(t, path, pi.Skipped[0].Path)
}

func TestBuildProject_ParseFailureFatalWithoutSkipErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.py", "def handler(:\n    ***invalid syntax***\n")

	_, err := BuildProject(context.Background(), []string{path}, Options{Verbosity: pyast.VerbosityNormal})
	require.Error(t, err)

	var fatal *FatalIndexError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, path, fatal.Path)
}

func TestBuildProject_ReadFailureFatalWithoutSkipErrors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.py")

	_, err := BuildProject(context.Background(), []string{missing}, Options{Verbosity: pyast.VerbosityNormal})
	require.Error(t, err)
}

func TestBuildProject_SkipErrorsRecoversFromParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.py", "def handler(:\n    ***invalid syntax***\n")

	pi, err := BuildProject(context.Background(), []string{path}, Options{Verbosity: pyast.VerbosityNormal, SkipErrors: true})
	require.NoError(t, err)
	defer pi.Close()
	require.Len(t, pi.Skipped, 1)
	assert.Equal(t, path, pi.Skipped[0].Path)
}

func TestBuildProject_SkipErrorsRecoversFromReadFailure(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.py")

	pi, err := BuildProject(context.Background(), []string{missing}, Options{Verbosity: pyast.VerbosityNormal, SkipErrors: true})
	require.NoError(t, err)
	defer pi.Close()
	require.Len(t, pi.Skipped, 1)
}

func TestBuildProject_DeterministicFileOrder(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.py", "x = 1\n")
	a := writeFile(t, dir, "a.py", "y = 2\n")

	pi, err := BuildProject(context.Background(), []string{b, a}, Options{Verbosity: pyast.VerbosityNormal})
	require.NoError(t, err)
	defer pi.Close()

	paths := pi.SortedFilePaths()
	require.Len(t, paths, 2)
	assert.Equal(t, a, paths[0])
	assert.Equal(t, b, paths[1])
}
