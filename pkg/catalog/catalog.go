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

// Package catalog holds the compiled-in sink and source tables: the
// fully-qualified callee names that deserialize attacker-controlled bytes,
// and the dotted-path prefixes that mark a value as attacker-controlled.
//
// The catalog is data, not code: it is encoded as YAML and loaded once at
// package init via go:embed, so the "policy surface, not a contract"
// framing (spec.md §4.1) is literal — auditing or extending the catalog
// never touches Go source.
package catalog

import (
	_ "embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var rawCatalog []byte

type sinkEntry struct {
	Name string `yaml:"name"`
	Note string `yaml:"note"`
}

type catalogFile struct {
	Sinks   []sinkEntry `yaml:"sinks"`
	Sources []string    `yaml:"sources"`
}

var (
	loadOnce sync.Once
	sinks    map[string]string // fully-qualified name -> note
	sources  map[string]struct{}
)

func load() {
	loadOnce.Do(func() {
		var cf catalogFile
		if err := yaml.Unmarshal(rawCatalog, &cf); err != nil {
			panic("catalog: embedded catalog.yaml failed to parse: " + err.Error())
		}
		sinks = make(map[string]string, len(cf.Sinks))
		for _, s := range cf.Sinks {
			sinks[s.Name] = s.Note
		}
		sources = make(map[string]struct{}, len(cf.Sources))
		for _, s := range cf.Sources {
			sources[s] = struct{}{}
		}
	})
}

// IsSink reports whether name is an exact match in the sink table, per
// spec.md §4.1's "exact match on the fully-qualified callee name".
func IsSink(name string) bool {
	load()
	_, ok := sinks[name]
	return ok
}

// Sinks returns a copy of the full sink-name set, for callers enumerating
// the catalog (e.g. report sinks labelling a rule catalog).
func Sinks() []string {
	load()
	out := make([]string, 0, len(sinks))
	for k := range sinks {
		out = append(out, k)
	}
	return out
}

// MatchSource reports whether name matches the source catalog: either an
// exact membership match, or membership of any proper dotted prefix,
// checked from the longest prefix down to the shortest — mirroring
// utils.match_source's `".".join(parts[:i])` loop exactly (literal
// string membership, not a glob; see SPEC_FULL.md's Open Questions).
func MatchSource(name string) bool {
	load()
	if name == "" {
		return false
	}
	if _, ok := sources[name]; ok {
		return true
	}
	parts := strings.Split(name, ".")
	for i := len(parts); i > 0; i-- {
		partial := strings.Join(parts[:i], ".")
		if _, ok := sources[partial]; ok {
			return true
		}
	}
	return false
}
