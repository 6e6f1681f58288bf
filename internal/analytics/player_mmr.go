package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// MMREntry is one player's most recent MMR snapshot, optionally scoped
// to a single hero.
type MMREntry struct {
	AccountID     uint32  `db:"account_id"`
	MatchID       uint64  `db:"match_id"`
	StartTime     uint32  `db:"start_time"`
	PlayerScore   float64 `db:"player_score"`
	Rank          uint32  `db:"rank"`
	Division      uint32  `db:"division"`
	DivisionTier  uint32  `db:"division_tier"`
}

func buildMMRQuery(accountIDs []uint32) string {
	return fmt.Sprintf(`
SELECT DISTINCT ON (account_id) account_id, match_id, start_time, player_score, rank, division, division_tier
FROM mmr_history
WHERE account_id IN (%s)
ORDER BY account_id, match_id DESC
`, joinUint32(accountIDs))
}

func buildHeroMMRQuery(accountIDs []uint32, heroID uint8) string {
	return fmt.Sprintf(`
SELECT DISTINCT ON (account_id) account_id, match_id, start_time, player_score, rank, division, division_tier
FROM hero_mmr_history
WHERE hero_id = %d AND account_id IN (%s)
ORDER BY account_id, match_id DESC
`, heroID, joinUint32(accountIDs))
}

func joinUint32(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

// MMR returns each account's latest MMR snapshot, one row per account
// that has one. See the package-level warning in the router docs about
// how player_score maps to rank before interpreting it.
func (s *Service) MMR(ctx context.Context, accountIDs []uint32) ([]MMREntry, error) {
	return s.mmrCache.GetOrCompute(ctx, fmt.Sprintf("%v", accountIDs), playerTTL, func(ctx context.Context) ([]MMREntry, error) {
		rows, err := s.db.Query(ctx, buildMMRQuery(accountIDs))
		if err != nil {
			return nil, fmt.Errorf("analytics: querying mmr: %w", err)
		}
		return pgx.CollectRows(rows, pgx.RowToStructByName[MMREntry])
	})
}

// HeroMMR is the hero-scoped counterpart of MMR.
func (s *Service) HeroMMR(ctx context.Context, accountIDs []uint32, heroID uint8) ([]MMREntry, error) {
	key := fmt.Sprintf("hero=%d:%v", heroID, accountIDs)
	return s.mmrCache.GetOrCompute(ctx, key, playerTTL, func(ctx context.Context) ([]MMREntry, error) {
		rows, err := s.db.Query(ctx, buildHeroMMRQuery(accountIDs, heroID))
		if err != nil {
			return nil, fmt.Errorf("analytics: querying hero mmr: %w", err)
		}
		return pgx.CollectRows(rows, pgx.RowToStructByName[MMREntry])
	})
}
