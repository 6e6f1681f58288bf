package featureflag

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFlags(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flags.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoad_MissingFileDefaultsEnabled(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !s.Enabled("anything") {
		t.Error("expected unknown flag in missing file to default enabled")
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeFlags(t, `{"custom_matches": false, "active_matches": true}`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Enabled("custom_matches") {
		t.Error("expected custom_matches to be disabled")
	}
	if !s.Enabled("active_matches") {
		t.Error("expected active_matches to be enabled")
	}
	if !s.Enabled("unlisted_flag") {
		t.Error("expected unlisted flag to default enabled")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeFlags(t, `not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestEnabled_NilSet(t *testing.T) {
	var s *Set
	if !s.Enabled("anything") {
		t.Error("expected nil Set to default every flag enabled")
	}
}
