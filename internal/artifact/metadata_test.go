package artifact

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/objectstore"
)

type fakeStore struct {
	data map[string][]byte
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if d, ok := f.data[key]; ok {
		return d, nil
	}
	return nil, objectstore.ErrNotFound
}

func newTestResolver(cache, primary *fakeStore) *Resolver {
	return &Resolver{
		cacheStore:   cache,
		primaryStore: primary,
		logger:       slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestGetMetadataRaw_CacheStoreHit(t *testing.T) {
	cache := &fakeStore{data: map[string][]byte{"42.meta.bz2": []byte("cached-blob")}}
	primary := &fakeStore{data: map[string][]byte{}}
	r := newTestResolver(cache, primary)

	data, err := r.GetMetadataRaw(context.Background(), testIdentity, 42)
	if err != nil {
		t.Fatalf("GetMetadataRaw() error = %v", err)
	}
	if string(data) != "cached-blob" {
		t.Errorf("data = %q, want %q", data, "cached-blob")
	}
}

func TestGetMetadataRaw_PrimaryStoreFallback(t *testing.T) {
	cache := &fakeStore{data: map[string][]byte{}}
	primary := &fakeStore{data: map[string][]byte{"processed/metadata/42.meta.bz2": []byte("primary-blob")}}
	r := newTestResolver(cache, primary)

	data, err := r.GetMetadataRaw(context.Background(), testIdentity, 42)
	if err != nil {
		t.Fatalf("GetMetadataRaw() error = %v", err)
	}
	if string(data) != "primary-blob" {
		t.Errorf("data = %q, want %q", data, "primary-blob")
	}
}

func TestGetMetadataRaw_TriesHltvSuffixSecond(t *testing.T) {
	cache := &fakeStore{data: map[string][]byte{"42.meta_hltv.bz2": []byte("hltv-blob")}}
	primary := &fakeStore{data: map[string][]byte{}}
	r := newTestResolver(cache, primary)

	data, err := r.GetMetadataRaw(context.Background(), testIdentity, 42)
	if err != nil {
		t.Fatalf("GetMetadataRaw() error = %v", err)
	}
	if string(data) != "hltv-blob" {
		t.Errorf("data = %q, want %q", data, "hltv-blob")
	}
}

func TestProbeMetadataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := &Resolver{httpClient: srv.Client(), logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}

	ok, err := r.probeMetadataURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("probeMetadataURL() error = %v", err)
	}
	if !ok {
		t.Error("expected probe to succeed for 200 response")
	}
}

func TestProbeMetadataURL_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := &Resolver{httpClient: srv.Client(), logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}

	ok, err := r.probeMetadataURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("probeMetadataURL() error = %v", err)
	}
	if ok {
		t.Error("expected probe to fail for 404 response")
	}
}

func TestRecentBuffer_WithinWindow(t *testing.T) {
	buf := newRecentBuffer(3)
	now := time.Now()
	buf.add(1, now.Add(-time.Minute))
	buf.add(2, now.Add(-30*time.Second))
	buf.add(3, now)

	got := buf.within(45 * time.Second)
	if len(got) != 2 {
		t.Fatalf("len(within) = %d, want 2", len(got))
	}
	if got[0] != 3 || got[1] != 2 {
		t.Errorf("got %v, want [3 2]", got)
	}
}

func TestRecentBuffer_CapsAtCapacity(t *testing.T) {
	buf := newRecentBuffer(2)
	now := time.Now()
	buf.add(1, now)
	buf.add(2, now)
	buf.add(3, now)

	got := buf.within(time.Hour)
	if len(got) != 2 {
		t.Fatalf("len(within) = %d, want 2", len(got))
	}
	if got[0] != 3 || got[1] != 2 {
		t.Errorf("got %v, want [3 2] (oldest evicted)", got)
	}
}
