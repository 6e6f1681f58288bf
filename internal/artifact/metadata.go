package artifact

import (
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/objectstore"
	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/ratelimit"
	"github.com/deadlock-api/gatekeeper/internal/telemetry"
)

// metadataKeys returns the object-store keys tried in order for a given
// match id, within either the cache-store or the primary-store prefix.
func metadataKeys(matchID uint64, primaryPrefix string) []string {
	return []string{
		fmt.Sprintf("%s%d.meta.bz2", primaryPrefix, matchID),
		fmt.Sprintf("%s%d.meta_hltv.bz2", primaryPrefix, matchID),
	}
}

// GetMetadataRaw returns the bzip2-compressed metadata blob as-is,
// trying the cache store, then the primary store, then an upstream
// fetch gated by salts resolution.
func (r *Resolver) GetMetadataRaw(ctx context.Context, identity ratelimit.Identity, matchID uint64) ([]byte, error) {
	for _, key := range metadataKeys(matchID, "") {
		data, err := r.cacheStore.Get(ctx, key)
		if err == nil {
			telemetry.ArtifactResolutionTotal.WithLabelValues("cache_store", "hit").Inc()
			return data, nil
		}
		if !errors.Is(err, objectstore.ErrNotFound) {
			r.logger.Error("artifact: cache store read failed", "error", err, "key", key)
		}
	}

	for _, key := range metadataKeys(matchID, "processed/metadata/") {
		data, err := r.primaryStore.Get(ctx, key)
		if err == nil {
			telemetry.ArtifactResolutionTotal.WithLabelValues("primary_store", "hit").Inc()
			return data, nil
		}
		if !errors.Is(err, objectstore.ErrNotFound) {
			r.logger.Error("artifact: primary store read failed", "error", err, "key", key)
		}
	}

	salts, err := r.ResolveSalts(ctx, identity, matchID, false)
	if err != nil {
		telemetry.ArtifactResolutionTotal.WithLabelValues("upstream", "miss").Inc()
		return nil, err
	}

	data, err := r.fetchMetadataBlob(ctx, salts.MetadataURL())
	if err != nil {
		telemetry.ArtifactResolutionTotal.WithLabelValues("upstream", "error").Inc()
		return nil, err
	}
	telemetry.ArtifactResolutionTotal.WithLabelValues("upstream", "hit").Inc()
	return data, nil
}

func (r *Resolver) fetchMetadataBlob(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("artifact: building metadata fetch request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artifact: fetching metadata blob: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.NotFound("metadata blob not found upstream", nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("artifact: reading metadata blob: %w", err)
	}
	return data, nil
}

// GetMetadataDecoded runs the same cascade as GetMetadataRaw and then
// bzip2-decompresses and protobuf-decodes the blob into a MatchMetadata
// envelope.
func (r *Resolver) GetMetadataDecoded(ctx context.Context, identity ratelimit.Identity, matchID uint64) (*protocol.MatchMetadata, error) {
	raw, err := r.GetMetadataRaw(ctx, identity, matchID)
	if err != nil {
		return nil, err
	}

	decompressed, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("artifact: decompressing metadata blob: %w", err)
	}

	meta := &protocol.MatchMetadata{}
	if err := meta.Unmarshal(decompressed); err != nil {
		return nil, fmt.Errorf("artifact: decoding metadata blob: %w", err)
	}
	return meta, nil
}

// recordIngested marks a match id as having had its metadata/salts
// freshly ingested, for the recently-fetched listing.
func (r *Resolver) recordIngested(matchID uint64, at time.Time) {
	r.recent.add(matchID, at)
}
