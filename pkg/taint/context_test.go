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

package taint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taintlens/taintlens/pkg/pyast"
)

func parseSource(t *testing.T, source string) *pyast.File {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	f, err := pyast.Load(path, pyast.VerbosityNormal, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestDetectFunctionContexts_FlaskRouteWithMethods(t *testing.T) {
	f := parseSource(t, "@app.route('/upload', methods=['POST', 'GET'])\n"+
		"def handler():\n"+
		"    pass\n")

	contexts := detectFunctionContexts(f.Root)
	ctx, ok := contexts["handler"]
	require.True(t, ok)
	assert.Equal(t, "/upload", ctx.HTTPEndpoint)
	assert.Equal(t, "POST, GET", ctx.HTTPMethod)
	assert.Empty(t, ctx.OperationType)
}

func TestDetectFunctionContexts_FileOperationByName(t *testing.T) {
	f := parseSource(t, "def load_model():\n    pass\n")

	contexts := detectFunctionContexts(f.Root)
	ctx, ok := contexts["load_model"]
	require.True(t, ok)
	assert.Equal(t, "file_operation", ctx.OperationType)
	assert.Equal(t, "load_model", ctx.FunctionName)
}

func TestDetectFunctionContexts_TaskExecutionByName(t *testing.T) {
	f := parseSource(t, "def run_job():\n    pass\n")

	contexts := detectFunctionContexts(f.Root)
	ctx, ok := contexts["run_job"]
	require.True(t, ok)
	assert.Equal(t, "task_execution", ctx.OperationType)
}

func TestDetectFunctionContexts_FileOperationWinsOverTaskExecution(t *testing.T) {
	// "load_worker" matches both the file-operation pattern "load" and the
	// task-execution pattern "worker"; file-operation must win (see
	// DESIGN.md's Open Question decision on Context precedence).
	f := parseSource(t, "def load_worker():\n    pass\n")

	contexts := detectFunctionContexts(f.Root)
	ctx, ok := contexts["load_worker"]
	require.True(t, ok)
	assert.Equal(t, "file_operation", ctx.OperationType)
}

func TestDetectFunctionContexts_RoutedFunctionSuppressesOperationType(t *testing.T) {
	// "load_handler" would independently match the file-operation pattern,
	// but a routed decorator takes precedence and suppresses it entirely.
	f := parseSource(t, "@app.route('/x')\n"+
		"def load_handler():\n"+
		"    pass\n")

	contexts := detectFunctionContexts(f.Root)
	ctx, ok := contexts["load_handler"]
	require.True(t, ok)
	assert.Equal(t, "/x", ctx.HTTPEndpoint)
	assert.Empty(t, ctx.OperationType)
}

func TestDetectFunctionContexts_PlainFunctionHasNoContext(t *testing.T) {
	f := parseSource(t, "def total():\n    return 1\n")

	contexts := detectFunctionContexts(f.Root)
	_, ok := contexts["total"]
	assert.False(t, ok)
}
