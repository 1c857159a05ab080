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

package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taintlens/taintlens/pkg/index"
	"github.com/taintlens/taintlens/pkg/pyast"
)

func buildProject(t *testing.T, files map[string]string) *index.ProjectIndex {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	pi, err := index.BuildProject(context.Background(), paths, index.Options{Verbosity: pyast.VerbosityNormal})
	require.NoError(t, err)
	t.Cleanup(pi.Close)
	return pi
}

func firstCall(t *testing.T, fi *index.FileIndex, funcName string) pyast.Node {
	t.Helper()
	fn, ok := fi.Functions[funcName]
	require.True(t, ok, "function %s not indexed", funcName)
	var call pyast.Node
	fn.Node.Walk(func(n pyast.Node) bool {
		if n.Kind() == pyast.KindCall && call.IsNil() {
			call = n
		}
		return call.IsNil()
	})
	require.False(t, call.IsNil(), "no call found in %s", funcName)
	return call
}

func TestResolve_SinkShortCircuits(t *testing.T) {
	pi := buildProject(t, map[string]string{
		"app.py": "import pickle\n\ndef handler():\n    return pickle.loads(data)\n",
	})
	fi := pi.Files[pi.SortedFilePaths()[0]]
	call := firstCall(t, fi, "handler")

	res := Resolve(call, fi, pi)
	assert.Equal(t, "pickle.loads", res.QualifiedName)
	assert.Nil(t, res.Definition)
}

func TestResolve_LocalOnePartCall(t *testing.T) {
	pi := buildProject(t, map[string]string{
		"app.py": "def helper():\n    return 1\n\ndef handler():\n    return helper()\n",
	})
	fi := pi.Files[pi.SortedFilePaths()[0]]
	call := firstCall(t, fi, "handler")

	res := Resolve(call, fi, pi)
	assert.Equal(t, "helper", res.QualifiedName)
	require.NotNil(t, res.Definition)
	assert.Equal(t, "helper", res.Definition.Name)
}

// A bare `import helpers` binds imports["helpers"] = "helpers" (no
// alias), so the module hint used by the two-component branch is the
// import's own key rather than a separate alias, and the lookup
// succeeds. An aliased `import helpers as h` does NOT reach a
// definition here: extract_full_func_name substitutes "h" to "helpers"
// before the module-hint lookup ever runs, so imports["helpers"] (keyed
// by "h", not "helpers") is absent on the original too.
func TestResolve_TwoPartAliasResolvesThroughModulePath(t *testing.T) {
	pi := buildProject(t, map[string]string{
		"helpers.py": "def get_input():\n    return 1\n",
		"app.py":     "import helpers\n\ndef handler():\n    return helpers.get_input()\n",
	})
	var appFI *index.FileIndex
	for _, p := range pi.SortedFilePaths() {
		if filepath.Base(p) == "app.py" {
			appFI = pi.Files[p]
		}
	}
	require.NotNil(t, appFI)
	call := firstCall(t, appFI, "handler")

	res := Resolve(call, appFI, pi)
	assert.Equal(t, "helpers.get_input", res.QualifiedName)
	require.NotNil(t, res.Definition)
	assert.Equal(t, "get_input", res.Definition.Name)
}

func TestResolve_AliasedImportModuleHintMiss(t *testing.T) {
	pi := buildProject(t, map[string]string{
		"helpers.py": "def get_input():\n    return 1\n",
		"app.py":     "import helpers as h\n\ndef handler():\n    return h.get_input()\n",
	})
	var appFI *index.FileIndex
	for _, p := range pi.SortedFilePaths() {
		if filepath.Base(p) == "app.py" {
			appFI = pi.Files[p]
		}
	}
	require.NotNil(t, appFI)
	call := firstCall(t, appFI, "handler")

	res := Resolve(call, appFI, pi)
	assert.Equal(t, "helpers.get_input", res.QualifiedName)
	assert.Nil(t, res.Definition)
}

// A bare `from M import f` binds imports["f"] = "M.f", so a later call to
// f() resolves through QualifiedName into the two-component form
// "helpers.get_input", not a single component; that's the same outcome
// extract_full_func_name and resolve_function_call produce on the
// original, whose single-component re-export branch is unreachable for
// the same reason: any name present in imports is substituted before the
// branch is ever reached.
func TestResolve_FromImportResolvesAsTwoPartQualifiedName(t *testing.T) {
	pi := buildProject(t, map[string]string{
		"helpers.py": "def get_input():\n    return 1\n",
		"app.py":     "from helpers import get_input\n\ndef handler():\n    return get_input()\n",
	})
	var appFI *index.FileIndex
	for _, p := range pi.SortedFilePaths() {
		if filepath.Base(p) == "app.py" {
			appFI = pi.Files[p]
		}
	}
	require.NotNil(t, appFI)
	call := firstCall(t, appFI, "handler")

	res := Resolve(call, appFI, pi)
	assert.Equal(t, "helpers.get_input", res.QualifiedName)
	assert.Nil(t, res.Definition)
}

func TestResolve_UnresolvableThirdPartyCallReturnsNoDefinition(t *testing.T) {
	pi := buildProject(t, map[string]string{
		"app.py": "import requests\n\ndef handler():\n    return requests.get(url)\n",
	})
	fi := pi.Files[pi.SortedFilePaths()[0]]
	call := firstCall(t, fi, "handler")

	res := Resolve(call, fi, pi)
	assert.Equal(t, "requests.get", res.QualifiedName)
	assert.Nil(t, res.Definition)
}
