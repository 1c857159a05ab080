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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_PositionalTargetAndFlags(t *testing.T) {
	cfg, err := parseConfig([]string{
		"--exclude", "vendor",
		"--exclude", "tests",
		"--html", "--json", "--py2-support", "--skip-errors", "--verbose",
		"--scan-verbosity", "verbose",
		"app/",
	})
	require.NoError(t, err)
	assert.Equal(t, "app/", cfg.Target)
	assert.Equal(t, []string{"vendor", "tests"}, cfg.Exclude)
	assert.True(t, cfg.HTML)
	assert.True(t, cfg.JSON)
	assert.True(t, cfg.Py2Support)
	assert.True(t, cfg.SkipErrors)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "verbose", cfg.ScanVerbosity)
}

func TestParseConfig_DefaultsToNormalScanVerbosity(t *testing.T) {
	cfg, err := parseConfig([]string{"app.py"})
	require.NoError(t, err)
	assert.Equal(t, "normal", cfg.ScanVerbosity)
	assert.False(t, cfg.HTML)
	assert.False(t, cfg.JSON)
}

func TestParseConfig_RejectsInvalidScanVerbosity(t *testing.T) {
	_, err := parseConfig([]string{"--scan-verbosity", "chatty", "app.py"})
	assert.Error(t, err)
}

func TestParseConfig_RejectsMissingTarget(t *testing.T) {
	_, err := parseConfig([]string{"--json"})
	assert.Error(t, err)
}

func TestParseConfig_RejectsMultipleTargets(t *testing.T) {
	_, err := parseConfig([]string{"a.py", "b.py"})
	assert.Error(t, err)
}
