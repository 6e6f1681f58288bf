package router

import (
	"net/http"

	"github.com/deadlock-api/gatekeeper/internal/analytics"
)

func (d *Deps) handleHeroStats(w http.ResponseWriter, r *http.Request) {
	q := analytics.HeroStatsQuery{
		MinUnixTimestamp: queryUint64Ptr(r, "min_unix_timestamp"),
		MaxUnixTimestamp: queryUint64Ptr(r, "max_unix_timestamp"),
		MinDurationS:     queryUint64Ptr(r, "min_duration_s"),
		MaxDurationS:     queryUint64Ptr(r, "max_duration_s"),
		MinAverageBadge:  queryUint8Ptr(r, "min_average_badge"),
		MaxAverageBadge:  queryUint8Ptr(r, "max_average_badge"),
		MinMatchID:       queryUint64Ptr(r, "min_match_id"),
		MaxMatchID:       queryUint64Ptr(r, "max_match_id"),
		MinHeroMatches:   queryUint64Ptr(r, "min_hero_matches"),
		MaxHeroMatches:   queryUint64Ptr(r, "max_hero_matches"),
		AccountID:        queryUint64Ptr(r, "account_id"),
	}

	stats, err := d.Analytics.HeroStats(r.Context(), q)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, stats)
}

func (d *Deps) handleHeroWinLossStats(w http.ResponseWriter, r *http.Request) {
	q := analytics.HeroWinLossStatsQuery{
		MinUnixTimestamp: queryUint64Ptr(r, "min_unix_timestamp"),
		MaxUnixTimestamp: queryUint64Ptr(r, "max_unix_timestamp"),
		MinDurationS:     queryUint64Ptr(r, "min_duration_s"),
		MaxDurationS:     queryUint64Ptr(r, "max_duration_s"),
		MinAverageBadge:  queryUint8Ptr(r, "min_average_badge"),
		MaxAverageBadge:  queryUint8Ptr(r, "max_average_badge"),
		MinMatchID:       queryUint64Ptr(r, "min_match_id"),
		MaxMatchID:       queryUint64Ptr(r, "max_match_id"),
		AccountID:        queryUint64Ptr(r, "account_id"),
	}

	stats, err := d.Analytics.HeroWinLossStats(r.Context(), q)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, stats)
}

func (d *Deps) handleKillDeathStats(w http.ResponseWriter, r *http.Request) {
	q := analytics.KillDeathStatsQuery{
		MinUnixTimestamp: queryInt64Ptr(r, "min_unix_timestamp"),
		MaxUnixTimestamp: queryInt64Ptr(r, "max_unix_timestamp"),
		MinDurationS:     queryUint64Ptr(r, "min_duration_s"),
		MaxDurationS:     queryUint64Ptr(r, "max_duration_s"),
		MinMatchID:       queryUint64Ptr(r, "min_match_id"),
		MaxMatchID:       queryUint64Ptr(r, "max_match_id"),
		MinAverageBadge:  queryUint8Ptr(r, "min_average_badge"),
		MaxAverageBadge:  queryUint8Ptr(r, "max_average_badge"),
		AccountIDs:       queryUint32List(r, "account_ids"),
	}

	stats, err := d.Analytics.KillDeathStats(r.Context(), q)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, stats)
}

func (d *Deps) handleHeroCounters(w http.ResponseWriter, r *http.Request) {
	sameLane := true
	if v := queryBoolPtr(r, "same_lane_filter"); v != nil {
		sameLane = *v
	}

	q := analytics.HeroCounterStatsQuery{
		MinUnixTimestamp: queryUint64Ptr(r, "min_unix_timestamp"),
		MaxUnixTimestamp: queryUint64Ptr(r, "max_unix_timestamp"),
		MinDurationS:     queryUint64Ptr(r, "min_duration_s"),
		MaxDurationS:     queryUint64Ptr(r, "max_duration_s"),
		MinAverageBadge:  queryUint8Ptr(r, "min_average_badge"),
		MaxAverageBadge:  queryUint8Ptr(r, "max_average_badge"),
		MinMatchID:       queryUint64Ptr(r, "min_match_id"),
		MaxMatchID:       queryUint64Ptr(r, "max_match_id"),
		SameLaneFilter:   sameLane,
		AccountID:        queryUint64Ptr(r, "account_id"),
	}

	stats, err := d.Analytics.HeroCounters(r.Context(), q)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, stats)
}

func (d *Deps) handleBadgeDistribution(w http.ResponseWriter, r *http.Request) {
	q := analytics.BadgeDistributionQuery{
		MinUnixTimestamp:        queryInt64Ptr(r, "min_unix_timestamp"),
		MaxUnixTimestamp:        queryInt64Ptr(r, "max_unix_timestamp"),
		MaxDurationS:            queryUint64Ptr(r, "max_duration_s"),
		MinMatchID:              queryUint64Ptr(r, "min_match_id"),
		MaxMatchID:              queryUint64Ptr(r, "max_match_id"),
		IsHighSkillRangeParties: queryBoolPtr(r, "is_high_skill_range_parties"),
		IsLowPriPool:            queryBoolPtr(r, "is_low_pri_pool"),
		IsNewPlayerPool:         queryBoolPtr(r, "is_new_player_pool"),
	}

	dist, err := d.Analytics.BadgeDistribution(r.Context(), q)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, dist)
}
