package artifact

import (
	"context"
	"testing"

	"github.com/deadlock-api/gatekeeper/internal/ratelimit"
)

func TestSalts_HasMetadataSalt(t *testing.T) {
	tests := []struct {
		name  string
		salts Salts
		want  bool
	}{
		{"full salts", Salts{ClusterID: 1, MetadataSalt: 99}, true},
		{"zero cluster", Salts{ClusterID: 0, MetadataSalt: 99}, false},
		{"zero metadata salt", Salts{ClusterID: 1, MetadataSalt: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.salts.HasMetadataSalt(); got != tt.want {
				t.Errorf("HasMetadataSalt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSalts_HasReplaySalt(t *testing.T) {
	tests := []struct {
		name  string
		salts Salts
		want  bool
	}{
		{"full salts", Salts{ClusterID: 1, ReplaySalt: 77}, true},
		{"zero replay salt", Salts{ClusterID: 1, ReplaySalt: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.salts.HasReplaySalt(); got != tt.want {
				t.Errorf("HasReplaySalt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSalts_URLs(t *testing.T) {
	s := Salts{MatchID: 42000000, ClusterID: 134, MetadataSalt: 999, ReplaySalt: 1}

	wantMeta := "http://replay134.valve.net/1422450/42000000_999.meta.bz2"
	if got := s.MetadataURL(); got != wantMeta {
		t.Errorf("MetadataURL() = %q, want %q", got, wantMeta)
	}

	wantDemo := "http://replay134.valve.net/1422450/42000000_1.dem.bz2"
	if got := s.DemoURL(); got != wantDemo {
		t.Errorf("DemoURL() = %q, want %q", got, wantDemo)
	}
}

func TestResolveSalts_RejectsBelowWatermark(t *testing.T) {
	r := &Resolver{}
	_, err := r.ResolveSalts(context.Background(), ratelimit.Identity{IP: "127.0.0.1"}, saltsWatermark-1, false)
	if err == nil {
		t.Fatal("expected error for match id below watermark")
	}
}
