/*
Copyright 2025 The Packtools authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package version resolves and caches the toolkit's own version, and offers
// semver helpers for working with version strings of packaged artifacts.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// develVersion is reported when no version information can be resolved,
// e.g. when running from a source checkout without build info.
const develVersion = "0.0.0-devel"

var (
	mu       sync.Mutex
	cached   string
	resolved bool
)

// Version returns the toolkit version. Resolution is deferred until the
// first call and the result is memoized, so importing this package stays
// free of metadata lookups.
func Version() string {
	mu.Lock()
	defer mu.Unlock()
	if !resolved {
		cached = resolve()
		resolved = true
	}
	return cached
}

// ResetCache discards the memoized version, forcing the next Version call
// to resolve it again.
func ResetCache() {
	mu.Lock()
	defer mu.Unlock()
	cached = ""
	resolved = false
}

// resolve reads the version from the embedded module build info, falling
// back to a VERSION file at the project root, falling back to the devel
// placeholder.
func resolve() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	if root, err := ProjectRoot(); err == nil {
		if b, err := os.ReadFile(filepath.Join(root, "VERSION")); err == nil {
			if v := strings.TrimSpace(string(b)); v != "" {
				return v
			}
		}
	}
	return develVersion
}

// ProjectRoot walks up from the working directory and returns the nearest
// directory containing a go.mod file.
func ProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found in any parent of the working directory")
		}
		dir = parent
	}
}

// Semver returns the resolved toolkit version parsed as a semver version.
func Semver() (*semver.Version, error) {
	return ParseVersion(Version())
}

// ParseVersion parses a version string and returns a semver.Version object.
// The validation is looser than the official semver spec, allowing for
// a 'v' prefix and 0-prefixed numbers in the major, minor, and patch segments
// (e.g., v2025.02.03-rc.1 is considered valid).
func ParseVersion(v string) (*semver.Version, error) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return nil, semver.ErrInvalidSemVer
	}

	return semver.NewVersion(v)
}

// Sort filters the given strings based on the provided semver range
// and sorts them in descending order.
func Sort(c *semver.Constraints, vs []string) []string {
	var versions []*semver.Version
	for _, v := range vs {
		if pv, err := ParseVersion(v); err == nil && (c == nil || c.Check(pv)) {
			versions = append(versions, pv)
		}
	}
	sort.Sort(sort.Reverse(semver.Collection(versions)))
	sorted := make([]string, 0, len(versions))
	for _, v := range versions {
		sorted = append(sorted, v.Original())
	}
	return sorted
}
