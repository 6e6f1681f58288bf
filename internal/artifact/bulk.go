package artifact

import (
	"context"
	"sync"

	"github.com/deadlock-api/gatekeeper/internal/ratelimit"
)

// maxBulkMatches bounds a single bulk-metadata request.
const maxBulkMatches = 100

// bulkWorkers bounds how many cascade resolutions run concurrently for
// one bulk request.
const bulkWorkers = 8

// BulkResult is one match's outcome within a bulk-metadata request.
type BulkResult struct {
	MatchID uint64
	Error   error
}

// ResolveBulk resolves metadata for up to 100 match ids concurrently,
// bounded by a small worker pool, and reports per-match success or
// failure rather than failing the whole batch.
func (r *Resolver) ResolveBulk(ctx context.Context, identity ratelimit.Identity, matchIDs []uint64) []BulkResult {
	if len(matchIDs) > maxBulkMatches {
		matchIDs = matchIDs[:maxBulkMatches]
	}

	results := make([]BulkResult, len(matchIDs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < bulkWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				_, err := r.GetMetadataRaw(ctx, identity, matchIDs[i])
				results[i] = BulkResult{MatchID: matchIDs[i], Error: err}
			}
		}()
	}

	for i := range matchIDs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			for j := range results {
				if results[j].MatchID == 0 && results[j].Error == nil {
					results[j] = BulkResult{MatchID: matchIDs[j], Error: ctx.Err()}
				}
			}
			return results
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
