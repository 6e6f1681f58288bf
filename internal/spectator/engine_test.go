package spectator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbeDemo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := &Engine{httpClient: srv.Client(), demoHost: srv.URL}

	available, err := e.probeDemo(context.Background(), 42)
	if err != nil {
		t.Fatalf("probeDemo() error = %v", err)
	}
	if !available {
		t.Error("expected demo to be reported available")
	}
}

func TestProbeDemo_NotAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := &Engine{httpClient: srv.Client(), demoHost: srv.URL}

	available, err := e.probeDemo(context.Background(), 42)
	if err != nil {
		t.Fatalf("probeDemo() error = %v", err)
	}
	if available {
		t.Error("expected demo to be reported unavailable")
	}
}

func TestDemoURL(t *testing.T) {
	e := &Engine{demoHost: "https://dist1-ord1.steamcontent.com"}
	want := "https://dist1-ord1.steamcontent.com/tv/42000000"
	if got := e.demoURL(42000000); got != want {
		t.Errorf("demoURL() = %q, want %q", got, want)
	}
}

func TestStreamRaw_RelaysBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("demo-bytes"))
	}))
	defer srv.Close()

	e := &Engine{httpClient: srv.Client(), demoHost: srv.URL}

	var buf writeCollector
	if err := e.StreamRaw(context.Background(), 1, &buf); err != nil {
		t.Fatalf("StreamRaw() error = %v", err)
	}
	if buf.String() != "demo-bytes" {
		t.Errorf("got %q, want %q", buf.String(), "demo-bytes")
	}
}

func TestEnsureSpectating_ReturnsLeftAfterAutoLeave(t *testing.T) {
	e := &Engine{left: map[uint64]bool{42: true}}

	state, err := e.EnsureSpectating(context.Background(), 42)
	if err != nil {
		t.Fatalf("EnsureSpectating() error = %v", err)
	}
	if state != StateLeft {
		t.Errorf("EnsureSpectating() state = %v, want %v", state, StateLeft)
	}
}

type writeCollector struct {
	data []byte
}

func (w *writeCollector) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *writeCollector) String() string { return string(w.data) }
