// Package featureflag loads a small JSON document of feature toggles
// once at startup. Flags absent from the file default to enabled, so
// adding a new gated code path never requires a config deploy first.
package featureflag

import (
	"encoding/json"
	"fmt"
	"os"
)

// Set holds the flags loaded from a single JSON file.
type Set struct {
	flags map[string]bool
}

// Load reads path as a JSON object of flag name to bool. A missing file
// is not an error: it yields an empty Set, where every flag defaults to
// enabled.
func Load(path string) (*Set, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Set{flags: map[string]bool{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("featureflag: reading %s: %w", path, err)
	}

	var flags map[string]bool
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, fmt.Errorf("featureflag: parsing %s: %w", path, err)
	}
	return &Set{flags: flags}, nil
}

// Enabled reports whether name is enabled. An entry missing from the
// loaded file defaults to true.
func (s *Set) Enabled(name string) bool {
	if s == nil {
		return true
	}
	v, ok := s.flags[name]
	if !ok {
		return true
	}
	return v
}
