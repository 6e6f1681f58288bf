package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathUint64(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    uint64
		wantErr bool
	}{
		{"valid", "12345", 12345, false},
		{"zero", "0", 0, false},
		{"negative", "-1", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r = withURLParam(r, "match_id", tt.value)

			got, err := pathUint64(r, "match_id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("pathUint64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("pathUint64() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryBool(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"needs_demo=true", true},
		{"needs_demo=TRUE", true},
		{"needs_demo=1", true},
		{"needs_demo=yes", true},
		{"needs_demo=false", false},
		{"needs_demo=0", false},
		{"needs_demo=garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if got := queryBool(r, "needs_demo"); got != tt.want {
				t.Errorf("queryBool(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestQueryUint64Ptr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?account_id=42", nil)
	got := queryUint64Ptr(r, "account_id")
	if got == nil || *got != 42 {
		t.Fatalf("queryUint64Ptr() = %v, want 42", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := queryUint64Ptr(r, "account_id"); got != nil {
		t.Errorf("queryUint64Ptr() with missing param = %v, want nil", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/?account_id=not-a-number", nil)
	if got := queryUint64Ptr(r, "account_id"); got != nil {
		t.Errorf("queryUint64Ptr() with invalid param = %v, want nil", got)
	}
}

func TestQueryInt64Ptr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?min_unix_timestamp=-100", nil)
	got := queryInt64Ptr(r, "min_unix_timestamp")
	if got == nil || *got != -100 {
		t.Fatalf("queryInt64Ptr() = %v, want -100", got)
	}
}

func TestQueryUint8Ptr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?min_average_badge=12", nil)
	got := queryUint8Ptr(r, "min_average_badge")
	if got == nil || *got != 12 {
		t.Fatalf("queryUint8Ptr() = %v, want 12", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/?min_average_badge=300", nil)
	if got := queryUint8Ptr(r, "min_average_badge"); got != nil {
		t.Errorf("queryUint8Ptr() with out-of-range value = %v, want nil", got)
	}
}

func TestQueryBoolPtr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := queryBoolPtr(r, "same_lane_filter"); got != nil {
		t.Fatalf("queryBoolPtr() with missing param = %v, want nil", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/?same_lane_filter=false", nil)
	got := queryBoolPtr(r, "same_lane_filter")
	if got == nil || *got != false {
		t.Fatalf("queryBoolPtr() = %v, want false", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/?same_lane_filter=TRUE", nil)
	got = queryBoolPtr(r, "same_lane_filter")
	if got == nil || *got != true {
		t.Fatalf("queryBoolPtr() = %v, want true", got)
	}
}

func TestQueryUint32List(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?account_ids=1,2,%203", nil)
	got := queryUint32List(r, "account_ids")
	want := []uint32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("queryUint32List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("queryUint32List()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	r = httptest.NewRequest(http.MethodGet, "/?account_ids=1,garbage,3", nil)
	got = queryUint32List(r, "account_ids")
	want = []uint32{1, 3}
	if len(got) != len(want) {
		t.Fatalf("queryUint32List() with garbage entry = %v, want %v", got, want)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := queryUint32List(r, "account_ids"); got != nil {
		t.Errorf("queryUint32List() with missing param = %v, want nil", got)
	}
}
