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

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSink(t *testing.T) {
	assert.True(t, IsSink("pickle.load"))
	assert.True(t, IsSink("pickle.loads"))
	assert.True(t, IsSink("yaml.load"))
	assert.True(t, IsSink("keras.models.load_model"))
	assert.False(t, IsSink("yaml.safe_load"))
	assert.False(t, IsSink(""))
}

func TestMatchSource_ExactAndPrefix(t *testing.T) {
	assert.True(t, MatchSource("open"))
	assert.True(t, MatchSource("request.form"))
	assert.True(t, MatchSource("request.form.get"))
	// Longest-dotted-prefix match: a made-up trailing component still
	// matches because "request.form" is itself a catalog entry.
	assert.True(t, MatchSource("request.form.something.else"))
	assert.False(t, MatchSource("request.nonexistent"))
	assert.False(t, MatchSource(""))
}

func TestMatchSource_RequiresDottedPrefixNotSuffix(t *testing.T) {
	// "foo.input" must not match "input" (that's a suffix, not a prefix).
	assert.False(t, MatchSource("foo.input"))
}
