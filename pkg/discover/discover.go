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

// Package discover walks a scan target and selects the source files the
// rest of the pipeline will index, matching spec.md §4.9/§6's discovery
// rules.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const sourceExtension = ".py"

// Files returns every eligible source file under target, a single file or
// a directory, after applying exclude as a substring filter over the full
// path. Matches discover_python_files exactly: a single file must itself
// end with .py; a directory is walked recursively and every .py file
// collected. Returns an empty slice (never nil) when nothing is found.
func Files(target string, exclude []string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}

	var found []string
	if info.IsDir() {
		err := filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.HasSuffix(d.Name(), sourceExtension) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else if strings.HasSuffix(target, sourceExtension) {
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, err
		}
		found = append(found, abs)
	}

	kept := []string{}
	for _, path := range found {
		if !shouldExclude(path, exclude) {
			kept = append(kept, path)
		}
	}
	sort.Strings(kept)
	return kept, nil
}

func shouldExclude(path string, exclude []string) bool {
	for _, pattern := range exclude {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

