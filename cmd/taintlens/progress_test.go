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

package main

import (
	"bytes"
	"os"
	"testing"
)

func TestNewProgressConfig(t *testing.T) {
	tests := []struct {
		name            string
		cfg             Config
		expectedEnabled bool
		expectedNoColor bool
	}{
		{
			name:            "default flags - not a TTY in test",
			cfg:             Config{},
			expectedEnabled: false,
			expectedNoColor: false,
		},
		{
			name:            "quiet mode disables progress",
			cfg:             Config{Quiet: true},
			expectedEnabled: false,
			expectedNoColor: false,
		},
		{
			name:            "noColor flag propagates to config",
			cfg:             Config{NoColor: true},
			expectedEnabled: false,
			expectedNoColor: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewProgressConfig(tt.cfg)
			if got.Enabled != tt.expectedEnabled {
				t.Errorf("Enabled = %v, want %v", got.Enabled, tt.expectedEnabled)
			}
			if got.NoColor != tt.expectedNoColor {
				t.Errorf("NoColor = %v, want %v", got.NoColor, tt.expectedNoColor)
			}
			if got.Writer != os.Stderr {
				t.Error("Writer should be os.Stderr")
			}
		})
	}
}

func TestNewProgressBar(t *testing.T) {
	t.Run("disabled config returns nil", func(t *testing.T) {
		bar := NewProgressBar(ProgressConfig{Enabled: false}, 100, "Test")
		if bar != nil {
			t.Error("expected nil bar when disabled")
		}
	})

	t.Run("enabled config returns usable bar", func(t *testing.T) {
		var buf bytes.Buffer
		bar := NewProgressBar(ProgressConfig{Enabled: true, Writer: &buf}, 10, "Scanning")
		if bar == nil {
			t.Fatal("expected non-nil bar when enabled")
		}
		_ = bar.Add(1)
		_ = bar.Finish()
	})
}

func TestNewSpinner(t *testing.T) {
	t.Run("disabled config returns nil", func(t *testing.T) {
		spinner := NewSpinner(ProgressConfig{Enabled: false}, "Indexing")
		if spinner != nil {
			t.Error("expected nil spinner when disabled")
		}
	})

	t.Run("enabled config returns usable spinner", func(t *testing.T) {
		var buf bytes.Buffer
		spinner := NewSpinner(ProgressConfig{Enabled: true, Writer: &buf}, "Indexing")
		if spinner == nil {
			t.Fatal("expected non-nil spinner when enabled")
		}
		_ = spinner.Finish()
	})
}

func TestAddBarAndFinishBar_NilSafe(t *testing.T) {
	// Both helpers must tolerate a nil bar (progress disabled) without panicking.
	addBar(nil)
	finishBar(nil)
}
