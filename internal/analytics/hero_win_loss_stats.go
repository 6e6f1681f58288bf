package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// HeroWinLossStatsQuery is the older, narrower sibling of HeroStatsQuery:
// it has no min_hero_matches/max_hero_matches knob and restricts to
// completed, normal-mode matches. Kept deliberately independent of
// HeroStatsQuery rather than unified with it.
type HeroWinLossStatsQuery struct {
	MinUnixTimestamp *uint64
	MaxUnixTimestamp *uint64
	MinDurationS     *uint64
	MaxDurationS     *uint64
	MinAverageBadge  *uint8
	MaxAverageBadge  *uint8
	MinMatchID       *uint64
	MaxMatchID       *uint64
	AccountID        *uint64
}

func (q HeroWinLossStatsQuery) cacheKey() string {
	return fmt.Sprintf("%+v", q)
}

// HeroWinLossStats is one hero's win/loss aggregate row.
type HeroWinLossStats struct {
	HeroID       uint32 `db:"hero_id"`
	Wins         uint64 `db:"wins"`
	Losses       uint64 `db:"losses"`
	Matches      uint64 `db:"matches"`
	TotalKills   uint64 `db:"total_kills"`
	TotalDeaths  uint64 `db:"total_deaths"`
	TotalAssists uint64 `db:"total_assists"`
}

func buildHeroWinLossStatsQuery(q HeroWinLossStatsQuery) string {
	info := &filterSet{}
	info.addUint64(q.MinUnixTimestamp, "start_time >= %d")
	info.addUint64(q.MaxUnixTimestamp, "start_time <= %d")
	info.addUint64(q.MinMatchID, "match_id >= %d")
	info.addUint64(q.MaxMatchID, "match_id <= %d")
	if q.MinAverageBadge != nil {
		info.add(fmt.Sprintf("average_badge_team0 >= %d AND average_badge_team1 >= %d", *q.MinAverageBadge, *q.MinAverageBadge))
	}
	if q.MaxAverageBadge != nil {
		info.add(fmt.Sprintf("average_badge_team0 <= %d AND average_badge_team1 <= %d", *q.MaxAverageBadge, *q.MaxAverageBadge))
	}
	info.addUint64(q.MinDurationS, "duration_s >= %d")
	info.addUint64(q.MaxDurationS, "duration_s <= %d")

	player := &filterSet{}
	if q.AccountID != nil {
		player.add(fmt.Sprintf("account_id = %d", *q.AccountID))
	}

	return fmt.Sprintf(`
WITH t_matches AS (
	SELECT match_id
	FROM match_info
	WHERE match_outcome = 'TeamWin'
		AND match_mode IN ('Ranked', 'Unranked')
		AND game_mode = 'Normal'%s
)
SELECT
	hero_id,
	SUM(CASE WHEN won THEN 1 ELSE 0 END) AS wins,
	SUM(CASE WHEN won THEN 0 ELSE 1 END) AS losses,
	COUNT(*) AS matches,
	SUM(kills) AS total_kills,
	SUM(deaths) AS total_deaths,
	SUM(assists) AS total_assists
FROM match_player
WHERE match_id IN (SELECT match_id FROM t_matches)%s
GROUP BY hero_id
ORDER BY hero_id
`, info.render("AND"), player.render("AND"))
}

// HeroWinLossStats returns the per-hero win/loss aggregate for q, cached
// for an hour. Deliberately kept separate from HeroStats rather than
// merged into one parameterized query.
func (s *Service) HeroWinLossStats(ctx context.Context, q HeroWinLossStatsQuery) ([]HeroWinLossStats, error) {
	return s.heroWinLossCache.GetOrCompute(ctx, q.cacheKey(), hourlyTTL, func(ctx context.Context) ([]HeroWinLossStats, error) {
		rows, err := s.db.Query(ctx, buildHeroWinLossStatsQuery(q))
		if err != nil {
			return nil, fmt.Errorf("analytics: querying hero win/loss stats: %w", err)
		}
		return pgx.CollectRows(rows, pgx.RowToStructByName[HeroWinLossStats])
	})
}
