package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/retry"
)

// LeaderboardEntry is one ranked row, reusing the coordinator's shape.
type LeaderboardEntry = protocol.LeaderboardEntry

// leaderboardTTL matches the coordinator's own refresh cadence; there's
// no point asking more often than that.
const leaderboardTTL = 10 * time.Minute

// Leaderboard returns the ranked leaderboard for region, optionally
// scoped to heroID (zero means the overall leaderboard).
func (s *Service) Leaderboard(ctx context.Context, region int32, heroID uint32) ([]LeaderboardEntry, error) {
	key := fmt.Sprintf("%d:%d", region, heroID)
	return s.leaderboardCache.GetOrCompute(ctx, key, leaderboardTTL, func(ctx context.Context) ([]LeaderboardEntry, error) {
		resp, err := retry.Do(ctx, func(ctx context.Context) (*protocol.GetLeaderboardResponse, error) {
			out := &protocol.GetLeaderboardResponse{}
			_, err := proxyclient.Call(ctx, s.proxy, proxyclient.Request{
				Kind:         proxyclient.MessageGetLeaderboard,
				Body:         &protocol.GetLeaderboardRequest{Region: region, HeroID: heroID},
				CooldownTime: time.Minute,
			}, out)
			return out, err
		})
		if err != nil {
			return nil, fmt.Errorf("analytics: fetching leaderboard: %w", err)
		}
		return resp.Entries, nil
	})
}
