package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
)

func TestStatus_Remaining(t *testing.T) {
	tests := []struct {
		name     string
		limit    uint32
		requests uint32
		want     uint32
	}{
		{"under limit", 10, 3, 7},
		{"at limit", 10, 10, 0},
		{"over limit", 10, 15, 0},
		{"zero limit always denies", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Status{Quota: Quota{Limit: tt.limit}, Requests: tt.requests}
			if got := s.Remaining(); got != tt.want {
				t.Errorf("Remaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatus_IsExceeded(t *testing.T) {
	exceeded := Status{Quota: Quota{Limit: 5}, Requests: 5}
	if !exceeded.IsExceeded() {
		t.Error("expected exceeded status to report exceeded")
	}

	ok := Status{Quota: Quota{Limit: 5}, Requests: 4}
	if ok.IsExceeded() {
		t.Error("expected status under limit to report not exceeded")
	}
}

func TestStatus_NextRequestIn(t *testing.T) {
	notExceeded := Status{Quota: Quota{Limit: 5, Period: time.Minute}, Requests: 1}
	if d := notExceeded.NextRequestIn(); d != 0 {
		t.Errorf("NextRequestIn() = %v, want 0 when not exceeded", d)
	}

	exceeded := Status{
		Quota:         Quota{Limit: 5, Period: time.Minute},
		Requests:      5,
		OldestRequest: time.Now().Add(-30 * time.Second),
	}
	d := exceeded.NextRequestIn()
	if d <= 0 || d > time.Minute {
		t.Errorf("NextRequestIn() = %v, want roughly 30s", d)
	}
}

func TestStatus_WriteHeaders(t *testing.T) {
	s := Status{
		Quota:         Quota{Limit: 30, Period: time.Minute},
		Requests:      30,
		OldestRequest: time.Now().Add(-10 * time.Second),
	}

	w := httptest.NewRecorder()
	s.WriteHeaders(w)

	if got := w.Header().Get("RateLimit-Limit"); got != "30" {
		t.Errorf("RateLimit-Limit = %q, want 30", got)
	}
	if got := w.Header().Get("RateLimit-Period"); got != "60" {
		t.Errorf("RateLimit-Period = %q, want 60", got)
	}
	if got := w.Header().Get("RateLimit-Remaining"); got != "0" {
		t.Errorf("RateLimit-Remaining = %q, want 0", got)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set when exceeded")
	}
}

func newTestRateLimiter(t *testing.T, emergencyMode bool) *RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)), emergencyMode)
}

// With a KEY-only quota, no key, and emergency mode on, the missing-key
// case must win: it's checked before emergency mode, and it's a 403, not
// the 401 an unauthenticated caller might expect or the 503 emergency
// mode would otherwise produce.
func TestApply_MissingKeyQuotaTakesPriorityOverEmergencyMode(t *testing.T) {
	rl := newTestRateLimiter(t, true)

	quotas := []Quota{{Limit: 10, Period: time.Minute, Scope: ScopeKey}}
	_, err := rl.Apply(context.Background(), Identity{IP: "1.2.3.4"}, "test.bucket", quotas)

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Apply() error = %v, want an *apierr.Error", err)
	}
	if apiErr.Kind != apierr.KindForbidden {
		t.Errorf("Apply() Kind = %v, want %v", apiErr.Kind, apierr.KindForbidden)
	}
}

// A KEY-only quota with an IP fallback present must not trip the
// missing-key rejection; emergency mode without a key still rejects.
func TestApply_EmergencyModeRejectsUnkeyedCallerWithIPFallback(t *testing.T) {
	rl := newTestRateLimiter(t, true)

	quotas := []Quota{
		{Limit: 10, Period: time.Minute, Scope: ScopeKey},
		{Limit: 100, Period: time.Minute, Scope: ScopeIP},
	}
	_, err := rl.Apply(context.Background(), Identity{IP: "1.2.3.4"}, "test.bucket", quotas)

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Apply() error = %v, want an *apierr.Error", err)
	}
	if apiErr.Kind != apierr.KindServiceUnavailable {
		t.Errorf("Apply() Kind = %v, want %v", apiErr.Kind, apierr.KindServiceUnavailable)
	}
}
