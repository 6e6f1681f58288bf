package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/retry"
)

// maxRefetchIterations bounds how many coordinator pages ForceRefetch
// will walk before giving up, in case the continue cursor never settles.
const maxRefetchIterations = 100

// MatchHistoryEntry is one match in a player's history, merged from
// whichever of the analytics store and the coordinator had it.
type MatchHistoryEntry struct {
	MatchID   uint64 `db:"match_id" json:"match_id"`
	HeroID    uint32 `db:"hero_id" json:"hero_id"`
	Team      uint32 `db:"team" json:"team"`
	Won       bool   `db:"won" json:"won"`
	Kills     uint32 `db:"kills" json:"kills"`
	Deaths    uint32 `db:"deaths" json:"deaths"`
	Assists   uint32 `db:"assists" json:"assists"`
	StartTime uint32 `db:"start_time" json:"start_time"`
}

func (s *Service) storedMatchHistory(ctx context.Context, accountID uint32) ([]MatchHistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
SELECT match_id, hero_id, team, won, kills, deaths, assists, start_time
FROM player_match_history
WHERE account_id = $1
ORDER BY match_id DESC
`, accountID)
	if err != nil {
		return nil, fmt.Errorf("analytics: querying stored match history: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[MatchHistoryEntry])
}

// fetchCoordinatorHistory walks the coordinator's paginated match history
// for accountID. When forceRefetch is false it stops after the first
// page; otherwise it keeps following the continue cursor until the page
// comes back empty, the cursor stops decreasing, or it runs out of
// iterations.
func (s *Service) fetchCoordinatorHistory(ctx context.Context, accountID uint32, forceRefetch bool) ([]MatchHistoryEntry, error) {
	var entries []MatchHistoryEntry
	var cursor uint64

	for iteration := 0; iteration < maxRefetchIterations; iteration++ {
		resp, err := retry.Do(ctx, func(ctx context.Context) (*protocol.GetMatchHistoryResponse, error) {
			out := &protocol.GetMatchHistoryResponse{}
			_, err := proxyclient.Call(ctx, s.proxy, proxyclient.Request{
				Kind: proxyclient.MessageGetMatchHistory,
				Body: &protocol.GetMatchHistoryRequest{AccountID: accountID, ContinueCursor: cursor},
				CooldownTime: 24 * time.Hour / 200, // 200 requests/day
				InAllGroups:  []string{"GetMatchHistory"},
			}, out)
			return out, err
		})
		if err != nil {
			return nil, fmt.Errorf("analytics: fetching match history from coordinator: %w", err)
		}
		if resp.Result != protocol.ResultSuccess {
			return nil, apierr.Internal("coordinator rejected match history request", nil)
		}

		if len(resp.Matches) == 0 {
			break
		}
		for _, m := range resp.Matches {
			entries = append(entries, MatchHistoryEntry{
				MatchID:   m.MatchID,
				HeroID:    m.HeroID,
				Team:      m.PlayerTeam,
				Won:       m.Won,
				StartTime: m.StartTime,
			})
		}

		if !forceRefetch {
			break
		}
		if resp.ContinueCursor == 0 || (cursor != 0 && resp.ContinueCursor >= cursor) {
			break
		}
		cursor = resp.ContinueCursor
	}

	return entries, nil
}

// MatchHistory returns accountID's match history, merging whatever the
// coordinator has with what's already stored. ForceRefetch and
// OnlyStoredHistory are mutually exclusive.
func (s *Service) MatchHistory(ctx context.Context, accountID uint32, forceRefetch, onlyStoredHistory bool) ([]MatchHistoryEntry, error) {
	if forceRefetch && onlyStoredHistory {
		return nil, apierr.BadRequest("force_refetch and only_stored_history are mutually exclusive", nil)
	}

	stored, err := s.storedMatchHistory(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if onlyStoredHistory {
		return stored, nil
	}

	key := fmt.Sprintf("%d:%v", accountID, forceRefetch)
	fetched, err := s.matchHistoryCache.GetOrCompute(ctx, key, playerTTL, func(ctx context.Context) ([]MatchHistoryEntry, error) {
		return s.fetchCoordinatorHistory(ctx, accountID, forceRefetch)
	})
	if err != nil {
		return nil, err
	}

	return mergeMatchHistory(fetched, stored), nil
}

// mergeMatchHistory combines coordinator-fetched entries (authoritative
// when present) with stored ones, keeping each match id once and
// ordering the result by match id descending.
func mergeMatchHistory(fetched, stored []MatchHistoryEntry) []MatchHistoryEntry {
	seen := make(map[uint64]bool, len(fetched))
	merged := make([]MatchHistoryEntry, 0, len(fetched)+len(stored))
	for _, e := range fetched {
		if seen[e.MatchID] {
			continue
		}
		seen[e.MatchID] = true
		merged = append(merged, e)
	}
	for _, e := range stored {
		if seen[e.MatchID] {
			continue
		}
		seen[e.MatchID] = true
		merged = append(merged, e)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].MatchID > merged[j].MatchID })
	return merged
}
