package artifact

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// IngestRow is a single user-contributed salts row.
type IngestRow struct {
	MatchID      uint64 `json:"match_id"`
	ClusterID    uint32 `json:"cluster_id"`
	MetadataSalt uint64 `json:"metadata_salt"`
	ReplaySalt   uint64 `json:"replay_salt"`
	Username     string `json:"username"`
}

// IngestSalts validates and persists a batch of user-contributed salts
// rows. Unless hasInternalSecret is true, every row is HEAD-probed
// against its computed metadata URL first and silently dropped if the
// probe doesn't return 2xx.
func (r *Resolver) IngestSalts(ctx context.Context, rows []IngestRow, hasInternalSecret bool) error {
	for _, row := range rows {
		salts := Salts{
			MatchID:      row.MatchID,
			ClusterID:    row.ClusterID,
			MetadataSalt: row.MetadataSalt,
			ReplaySalt:   row.ReplaySalt,
		}

		if !hasInternalSecret {
			ok, err := r.probeMetadataURL(ctx, salts.MetadataURL())
			if err != nil {
				r.logger.Error("artifact: ingest probe failed", "error", err, "match_id", row.MatchID)
				continue
			}
			if !ok {
				continue
			}
		}

		if err := r.insertSalts(ctx, salts, row.Username); err != nil {
			return fmt.Errorf("artifact: persisting ingested salts for match %d: %w", row.MatchID, err)
		}
		r.saltsCache.Invalidate(fmt.Sprintf("%d:true", row.MatchID))
		r.saltsCache.Invalidate(fmt.Sprintf("%d:false", row.MatchID))
		r.recordIngested(row.MatchID, time.Now())
	}
	return nil
}

func (r *Resolver) probeMetadataURL(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("building HEAD request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("issuing HEAD request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
