package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/resultcache"
)

// store is the subset of *pgxpool.Pool every query builder here needs.
type store interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// hourlyTTL is the cache lifetime for the aggregate endpoints: they scan
// a large match window and almost never change meaning within an hour.
const hourlyTTL = time.Hour

// playerTTL is the shorter cache lifetime for per-player lookups, which
// are enriched by fresh coordinator data more often.
const playerTTL = 10 * time.Minute

// Service answers analytics queries against the analytics store, and a
// handful that go through the coordinator proxy instead.
type Service struct {
	db    store
	proxy *proxyclient.Client

	heroStatsCache         *resultcache.Cache[[]HeroStats]
	heroWinLossCache       *resultcache.Cache[[]HeroWinLossStats]
	heroCountersCache      *resultcache.Cache[[]HeroCounterStats]
	killDeathCache         *resultcache.Cache[[]KillDeathStats]
	badgeDistributionCache *resultcache.Cache[[]BadgeDistribution]
	mmrCache               *resultcache.Cache[[]MMREntry]
	matchHistoryCache      *resultcache.Cache[[]MatchHistoryEntry]
	leaderboardCache       *resultcache.Cache[[]LeaderboardEntry]
	activeMatchesCache     *resultcache.Cache[[]ActiveMatch]
}

// New builds a Service. db is the analytics store pool; proxy reaches
// the coordinator for live data (leaderboard, active matches, fresh
// match history pages).
func New(db *pgxpool.Pool, proxy *proxyclient.Client) *Service {
	return &Service{
		db:                     db,
		proxy:                  proxy,
		heroStatsCache:         resultcache.New[[]HeroStats]("hero_stats"),
		heroWinLossCache:       resultcache.New[[]HeroWinLossStats]("hero_win_loss_stats"),
		heroCountersCache:      resultcache.New[[]HeroCounterStats]("hero_counter_stats"),
		killDeathCache:         resultcache.New[[]KillDeathStats]("kill_death_stats"),
		badgeDistributionCache: resultcache.New[[]BadgeDistribution]("badge_distribution"),
		mmrCache:               resultcache.New[[]MMREntry]("player_mmr"),
		matchHistoryCache:      resultcache.New[[]MatchHistoryEntry]("player_match_history"),
		leaderboardCache:       resultcache.New[[]LeaderboardEntry]("leaderboard"),
		activeMatchesCache:     resultcache.New[[]ActiveMatch]("active_matches"),
	}
}
