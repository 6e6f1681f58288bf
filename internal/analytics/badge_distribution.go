package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BadgeDistributionQuery filters the player badge histogram.
type BadgeDistributionQuery struct {
	MinUnixTimestamp         *int64
	MaxUnixTimestamp         *int64
	MaxDurationS             *uint64
	MinMatchID               *uint64
	MaxMatchID               *uint64
	IsHighSkillRangeParties  *bool
	IsLowPriPool             *bool
	IsNewPlayerPool          *bool
}

func (q BadgeDistributionQuery) cacheKey() string {
	return fmt.Sprintf("%+v", q)
}

// BadgeDistribution is the match count for one badge level.
type BadgeDistribution struct {
	BadgeLevel   uint32 `db:"badge_level"`
	TotalMatches uint64 `db:"total_matches"`
}

func buildBadgeDistributionQuery(q BadgeDistributionQuery) string {
	info := &filterSet{}
	if q.MinUnixTimestamp != nil {
		info.add(fmt.Sprintf("start_time >= %d", *q.MinUnixTimestamp))
	}
	if q.MaxUnixTimestamp != nil {
		info.add(fmt.Sprintf("start_time <= %d", *q.MaxUnixTimestamp))
	}
	info.addUint64(q.MinMatchID, "match_id >= %d")
	info.addUint64(q.MaxMatchID, "match_id <= %d")
	info.addUint64(q.MaxDurationS, "duration_s <= %d")
	if q.IsHighSkillRangeParties != nil {
		info.add(fmt.Sprintf("is_high_skill_range_parties = %t", *q.IsHighSkillRangeParties))
	}
	if q.IsLowPriPool != nil {
		info.add(fmt.Sprintf("low_pri_pool = %t", *q.IsLowPriPool))
	}
	if q.IsNewPlayerPool != nil {
		info.add(fmt.Sprintf("new_player_pool = %t", *q.IsNewPlayerPool))
	}

	return fmt.Sprintf(`
SELECT
	COALESCE(badge_level, 0) AS badge_level,
	COUNT(*) AS total_matches
FROM match_info, UNNEST(ARRAY[average_badge_team0, average_badge_team1]) AS badge_level
WHERE match_mode IN ('Ranked', 'Unranked') AND game_mode = 'Normal' AND badge_level > 0%s
GROUP BY badge_level
ORDER BY badge_level
`, info.render("AND"))
}

// BadgeDistribution returns the match-count histogram by badge level,
// cached for an hour.
func (s *Service) BadgeDistribution(ctx context.Context, q BadgeDistributionQuery) ([]BadgeDistribution, error) {
	return s.badgeDistributionCache.GetOrCompute(ctx, q.cacheKey(), hourlyTTL, func(ctx context.Context) ([]BadgeDistribution, error) {
		rows, err := s.db.Query(ctx, buildBadgeDistributionQuery(q))
		if err != nil {
			return nil, fmt.Errorf("analytics: querying badge distribution: %w", err)
		}
		return pgx.CollectRows(rows, pgx.RowToStructByName[BadgeDistribution])
	})
}
