// Package widgetversion loads the minimum supported client version per
// platform from a JSON file at startup, the same way internal/featureflag
// loads its flags. Requests carrying an older version get rejected by
// internal/middleware before they reach a handler.
package widgetversion

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/mod/semver"
)

// Set holds the minimum version required per platform.
type Set struct {
	minimums map[string]string
}

// Load reads path as a JSON object of platform name to minimum semver
// version ("v" prefix optional). A missing file yields an empty Set,
// where every platform is treated as unrestricted.
func Load(path string) (*Set, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Set{minimums: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("widgetversion: reading %s: %w", path, err)
	}

	var minimums map[string]string
	if err := json.Unmarshal(raw, &minimums); err != nil {
		return nil, fmt.Errorf("widgetversion: parsing %s: %w", path, err)
	}
	return &Set{minimums: minimums}, nil
}

func normalize(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// Supported reports whether version satisfies the minimum configured for
// platform. Platforms with no configured minimum, and versions that
// don't parse as semver, are treated as supported rather than rejected.
func (s *Set) Supported(platform, version string) bool {
	if s == nil {
		return true
	}
	min, ok := s.minimums[platform]
	if !ok || min == "" {
		return true
	}
	v, m := normalize(version), normalize(min)
	if !semver.IsValid(v) || !semver.IsValid(m) {
		return true
	}
	return semver.Compare(v, m) >= 0
}
