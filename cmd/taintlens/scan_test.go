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

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taintlenserrors "github.com/taintlens/taintlens/internal/errors"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty yields unnamed", "", "unnamed"},
		{"plain name passes through", "myproject", "myproject"},
		{"path traversal is reduced to base name", "../../etc/passwd", "passwd"},
		{"absolute path is reduced to base name", "/var/www/app", "app"},
		{"truncated to 100 chars", string(make([]byte, 150)), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeFilename(tt.in)
			if tt.name == "truncated to 100 chars" {
				assert.Len(t, got, 100)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectName_StripsPySuffixAndSanitizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "views.py")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	assert.Equal(t, "views", projectName(path))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "1.50 seconds", formatElapsed(1500*time.Millisecond))
	assert.Equal(t, "1 minute, 5.00 seconds", formatElapsed(65*time.Second))
	assert.Equal(t, "2 minutes, 0.00 seconds", formatElapsed(120*time.Second))
}

func TestRun_EmptyTargetPrintsNoticeAndExitsZero(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	result := run(context.Background(), Config{Target: dir, ScanVerbosity: "normal", Quiet: true}, &stdout, &stderr, slog.Default())
	assert.Nil(t, result.fatal)
	assert.Equal(t, taintlenserrors.ExitSuccess, result.exitCode)
}

func TestRun_ScansVulnerableFileAndWritesJSONReport(t *testing.T) {
	dir := t.TempDir()
	src := `import pickle

def handler(request):
    data = request.form['payload']
    return pickle.loads(data)
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(src), 0o644))

	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer

	cfg := Config{Target: dir, ScanVerbosity: "normal", Quiet: true, JSON: true}
	result := run(context.Background(), cfg, &stdout, &stderr, slog.Default())
	require.Nil(t, result.fatal)
	assert.Equal(t, taintlenserrors.ExitSuccess, result.exitCode)
	assert.Contains(t, stdout.String(), "pickle.loads")

	entries, err := os.ReadDir("reports")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), ".json")
}

func TestRun_InvalidScanVerbosityIsFatal(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	result := run(context.Background(), Config{Target: dir, ScanVerbosity: "loud"}, &stdout, &stderr, slog.Default())
	require.NotNil(t, result.fatal)
	assert.Equal(t, taintlenserrors.ExitInput, result.fatal.ExitCode)
}

func TestRun_MissingTargetIsFatal(t *testing.T) {
	var stdout, stderr bytes.Buffer

	result := run(context.Background(), Config{Target: filepath.Join(t.TempDir(), "missing"), ScanVerbosity: "normal"}, &stdout, &stderr, slog.Default())
	require.NotNil(t, result.fatal)
	assert.Equal(t, taintlenserrors.ExitInput, result.fatal.ExitCode)
}
