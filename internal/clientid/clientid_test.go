package clientid

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "CF-Connecting-IP wins",
			headers: map[string]string{"CF-Connecting-IP": "144.155.166.177", "X-Real-IP": "9.9.9.9"},
			want:    "144.155.166.177",
		},
		{
			name:    "falls back to X-Real-IP",
			headers: map[string]string{"X-Real-IP": "9.9.9.9"},
			want:    "9.9.9.9",
		},
		{
			name:    "falls back to X-Forwarded-For first hop",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			want:    "1.2.3.4",
		},
		{
			name:   "falls back to RemoteAddr",
			remote: "203.0.113.5:4242",
			want:   "203.0.113.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			if got := ExtractIP(r); got != tt.want {
				t.Errorf("ExtractIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantOK  bool
		wantStr string
	}{
		{
			name:    "prefixed key",
			header:  "dl_f1da7396-03aa-4ac0-975d-39c222b25088",
			wantOK:  true,
			wantStr: "f1da7396-03aa-4ac0-975d-39c222b25088",
		},
		{
			name:    "bare key",
			header:  "f1da7396-03aa-4ac0-975d-39c222b25088",
			wantOK:  true,
			wantStr: "f1da7396-03aa-4ac0-975d-39c222b25088",
		},
		{
			name:   "missing header",
			header: "",
			wantOK: false,
		},
		{
			name:   "malformed key",
			header: "not-a-uuid",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("X-API-Key", tt.header)
			}
			id, ok := ExtractAPIKey(r)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id.String() != tt.wantStr {
				t.Errorf("id = %q, want %q", id.String(), tt.wantStr)
			}
		})
	}
}
