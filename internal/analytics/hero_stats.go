package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// HeroStatsQuery filters the hero_stats aggregate. Every field is
// optional; an absent field applies no filter.
type HeroStatsQuery struct {
	MinUnixTimestamp *uint64
	MaxUnixTimestamp *uint64
	MinDurationS     *uint64
	MaxDurationS     *uint64
	MinAverageBadge  *uint8
	MaxAverageBadge  *uint8
	MinMatchID       *uint64
	MaxMatchID       *uint64
	MinHeroMatches   *uint64
	MaxHeroMatches   *uint64
	AccountID        *uint64
}

func (q HeroStatsQuery) cacheKey() string {
	return fmt.Sprintf("%+v", q)
}

// HeroStats is one hero's aggregate row.
type HeroStats struct {
	HeroID                 uint32 `db:"hero_id"`
	Wins                   uint64 `db:"wins"`
	Losses                 uint64 `db:"losses"`
	Matches                uint64 `db:"matches"`
	Players                uint64 `db:"players"`
	TotalKills             uint64 `db:"total_kills"`
	TotalDeaths            uint64 `db:"total_deaths"`
	TotalAssists           uint64 `db:"total_assists"`
}

func buildHeroStatsQuery(q HeroStatsQuery) string {
	info := &filterSet{}
	info.addUint64(q.MinUnixTimestamp, "start_time >= %d")
	info.addUint64(q.MaxUnixTimestamp, "start_time <= %d")
	info.addUint64(q.MinMatchID, "match_id >= %d")
	info.addUint64(q.MaxMatchID, "match_id <= %d")
	info.addUint64(q.MinDurationS, "duration_s >= %d")
	info.addUint64(q.MaxDurationS, "duration_s <= %d")
	if q.MinAverageBadge != nil {
		info.add(fmt.Sprintf("average_badge_team0 >= %d AND average_badge_team1 >= %d", *q.MinAverageBadge, *q.MinAverageBadge))
	}
	if q.MaxAverageBadge != nil {
		info.add(fmt.Sprintf("average_badge_team0 <= %d AND average_badge_team1 <= %d", *q.MaxAverageBadge, *q.MaxAverageBadge))
	}

	player := &filterSet{}
	if q.AccountID != nil {
		player.add(fmt.Sprintf("account_id = %d", *q.AccountID))
	}

	heroMatches := &filterSet{}
	heroMatches.addUint64(q.MinHeroMatches, "COUNT(DISTINCT match_id) >= %d")
	heroMatches.addUint64(q.MaxHeroMatches, "COUNT(DISTINCT match_id) <= %d")

	heroMatchesCTE := ""
	heroMatchesJoin := ""
	if q.MinHeroMatches != nil || q.MaxHeroMatches != nil {
		heroMatchesCTE = fmt.Sprintf(`,
	t_players AS (
		SELECT account_id, hero_id
		FROM match_player
		WHERE match_id IN (SELECT match_id FROM t_matches)%s
		GROUP BY account_id, hero_id
		HAVING %s
	)`, player.render("AND"), heroMatches.joined())
		heroMatchesJoin = "AND (account_id, hero_id) IN (SELECT account_id, hero_id FROM t_players)"
	}

	return fmt.Sprintf(`
WITH t_matches AS (
	SELECT match_id
	FROM match_info
	WHERE match_mode IN ('Ranked', 'Unranked')%s
)%s
SELECT
	hero_id,
	SUM(CASE WHEN won THEN 1 ELSE 0 END) AS wins,
	SUM(CASE WHEN won THEN 0 ELSE 1 END) AS losses,
	COUNT(*) AS matches,
	COUNT(DISTINCT account_id) AS players,
	SUM(kills) AS total_kills,
	SUM(deaths) AS total_deaths,
	SUM(assists) AS total_assists
FROM match_player
WHERE match_id IN (SELECT match_id FROM t_matches)%s%s
GROUP BY hero_id
HAVING COUNT(*) > 1
ORDER BY hero_id
`, info.render("AND"), heroMatchesCTE, player.render("AND"), heroMatchesJoin)
}

// HeroStats returns the per-hero aggregate for q, cached for an hour.
func (s *Service) HeroStats(ctx context.Context, q HeroStatsQuery) ([]HeroStats, error) {
	return s.heroStatsCache.GetOrCompute(ctx, q.cacheKey(), hourlyTTL, func(ctx context.Context) ([]HeroStats, error) {
		rows, err := s.db.Query(ctx, buildHeroStatsQuery(q))
		if err != nil {
			return nil, fmt.Errorf("analytics: querying hero stats: %w", err)
		}
		return pgx.CollectRows(rows, pgx.RowToStructByName[HeroStats])
	})
}
