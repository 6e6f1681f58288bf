package widgetversion

import (
	"os"
	"path/filepath"
	"testing"
)

func writeVersions(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "widget_version.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoad_MissingFileAllowsEverything(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !s.Supported("web", "0.0.1") {
		t.Error("expected missing file to impose no minimum")
	}
}

func TestSupported(t *testing.T) {
	path := writeVersions(t, `{"web": "1.4.0"}`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		platform string
		version  string
		want     bool
	}{
		{"web", "1.4.0", true},
		{"web", "1.5.0", true},
		{"web", "1.3.9", false},
		{"unconfigured-platform", "0.0.1", true},
		{"web", "not-a-version", true},
	}
	for _, tt := range tests {
		if got := s.Supported(tt.platform, tt.version); got != tt.want {
			t.Errorf("Supported(%q, %q) = %v, want %v", tt.platform, tt.version, got, tt.want)
		}
	}
}

func TestSupported_NilSet(t *testing.T) {
	var s *Set
	if !s.Supported("web", "0.0.1") {
		t.Error("expected nil Set to impose no minimum")
	}
}
