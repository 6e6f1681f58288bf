package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// KillDeathStatsQuery filters the kill/death position heatmap. Note
// MinDurationS is accepted but intentionally never applied below; only
// MaxDurationS reaches the generated SQL, mirroring the upstream builder
// this was ported from.
type KillDeathStatsQuery struct {
	MinUnixTimestamp *int64
	MaxUnixTimestamp *int64
	MinDurationS     *uint64
	MaxDurationS     *uint64
	MinMatchID       *uint64
	MaxMatchID       *uint64
	MinAverageBadge  *uint8
	MaxAverageBadge  *uint8
	AccountIDs       []uint32
}

func (q KillDeathStatsQuery) cacheKey() string {
	return fmt.Sprintf("%+v", q)
}

// KillDeathStats is one grid cell of the kill/death heatmap.
type KillDeathStats struct {
	PositionX  int32  `db:"position_x"`
	PositionY  int32  `db:"position_y"`
	KillerTeam uint8  `db:"killer_team"`
	Deaths     uint64 `db:"deaths"`
	Kills      uint64 `db:"kills"`
}

func buildKillDeathStatsQuery(q KillDeathStatsQuery) string {
	info := &filterSet{}
	if q.MinUnixTimestamp != nil {
		info.add(fmt.Sprintf("start_time >= %d", *q.MinUnixTimestamp))
	}
	if q.MaxUnixTimestamp != nil {
		info.add(fmt.Sprintf("start_time <= %d", *q.MaxUnixTimestamp))
	}
	info.addUint64(q.MinMatchID, "match_id >= %d")
	info.addUint64(q.MaxMatchID, "match_id <= %d")
	if q.MinAverageBadge != nil && *q.MinAverageBadge > 11 {
		info.add(fmt.Sprintf("average_badge_team0 >= %d AND average_badge_team1 >= %d", *q.MinAverageBadge, *q.MinAverageBadge))
	}
	if q.MaxAverageBadge != nil && *q.MaxAverageBadge < 116 {
		info.add(fmt.Sprintf("average_badge_team0 <= %d AND average_badge_team1 <= %d", *q.MaxAverageBadge, *q.MaxAverageBadge))
	}
	// MinDurationS has no matching filter here; only the max bound is applied.
	if q.MaxDurationS != nil {
		info.add(fmt.Sprintf("duration_s <= %d", *q.MaxDurationS))
	}

	player := &filterSet{}
	if len(q.AccountIDs) > 0 {
		ids := make([]string, len(q.AccountIDs))
		for i, id := range q.AccountIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		player.add(fmt.Sprintf("account_id IN (%s)", strings.Join(ids, ",")))
	}

	return fmt.Sprintf(`
WITH t_matches AS (
	SELECT match_id
	FROM match_info
	WHERE match_mode IN ('Ranked', 'Unranked')%s
)
SELECT
	position_x,
	position_y,
	killer_team,
	COUNT(*) FILTER (WHERE event = 'death') AS deaths,
	COUNT(*) FILTER (WHERE event = 'kill') AS kills
FROM kill_death_events
WHERE match_id IN (SELECT match_id FROM t_matches)%s
GROUP BY position_x, position_y, killer_team
`, info.render("AND"), player.render("AND"))
}

// KillDeathStats returns the kill/death heatmap for q, cached for an hour.
func (s *Service) KillDeathStats(ctx context.Context, q KillDeathStatsQuery) ([]KillDeathStats, error) {
	return s.killDeathCache.GetOrCompute(ctx, q.cacheKey(), hourlyTTL, func(ctx context.Context) ([]KillDeathStats, error) {
		rows, err := s.db.Query(ctx, buildKillDeathStatsQuery(q))
		if err != nil {
			return nil, fmt.Errorf("analytics: querying kill/death stats: %w", err)
		}
		return pgx.CollectRows(rows, pgx.RowToStructByName[KillDeathStats])
	})
}
