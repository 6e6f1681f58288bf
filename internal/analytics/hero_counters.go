package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// HeroCounterStatsQuery filters hero-versus-hero matchup stats.
type HeroCounterStatsQuery struct {
	MinUnixTimestamp *uint64
	MaxUnixTimestamp *uint64
	MinDurationS     *uint64
	MaxDurationS     *uint64
	MinAverageBadge  *uint8
	MaxAverageBadge  *uint8
	MinMatchID       *uint64
	MaxMatchID       *uint64
	SameLaneFilter   bool // defaults to true, set explicitly by the handler
	AccountID        *uint64
}

func (q HeroCounterStatsQuery) cacheKey() string {
	return fmt.Sprintf("%+v", q)
}

// HeroCounterStats is one hero-vs-hero matchup row.
type HeroCounterStats struct {
	HeroID        uint32 `db:"hero_id"`
	EnemyHeroID   uint32 `db:"enemy_hero_id"`
	Wins          uint64 `db:"wins"`
	MatchesPlayed uint64 `db:"matches_played"`
}

func buildHeroCounterStatsQuery(q HeroCounterStatsQuery) string {
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
	if q.SameLaneFilter {
		player.add("p1.assigned_lane = p2.assigned_lane")
	}
	if q.AccountID != nil {
		player.add(fmt.Sprintf("p1.account_id = %d", *q.AccountID))
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
	p1.hero_id AS hero_id,
	p2.hero_id AS enemy_hero_id,
	SUM(CASE WHEN p1.won THEN 1 ELSE 0 END) AS wins,
	COUNT(*) AS matches_played
FROM match_player p1
JOIN match_player p2 ON p1.match_id = p2.match_id
WHERE p1.match_id IN (SELECT match_id FROM t_matches)
	AND p1.team != p2.team%s
GROUP BY p1.hero_id, p2.hero_id
HAVING COUNT(*) > 1
ORDER BY p1.hero_id, p2.hero_id
`, info.render("AND"), player.render("AND"))
}

// HeroCounters returns hero-versus-hero matchup stats for q, cached for
// an hour.
func (s *Service) HeroCounters(ctx context.Context, q HeroCounterStatsQuery) ([]HeroCounterStats, error) {
	return s.heroCountersCache.GetOrCompute(ctx, q.cacheKey(), hourlyTTL, func(ctx context.Context) ([]HeroCounterStats, error) {
		rows, err := s.db.Query(ctx, buildHeroCounterStatsQuery(q))
		if err != nil {
			return nil, fmt.Errorf("analytics: querying hero counter stats: %w", err)
		}
		return pgx.CollectRows(rows, pgx.RowToStructByName[HeroCounterStats])
	})
}
