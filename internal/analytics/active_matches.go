package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/retry"
)

// ActiveMatch is one currently-live match, reusing the coordinator's shape.
type ActiveMatch = protocol.ActiveMatch

// activeMatchesTTL matches the watch tab's own refresh interval.
const activeMatchesTTL = time.Minute

// ActiveMatches returns the top-200 watch-tab list, optionally filtered
// to matches containing accountID. A zero accountID means "no filter".
func (s *Service) ActiveMatches(ctx context.Context, accountID uint32) ([]ActiveMatch, error) {
	matches, err := s.activeMatchesCache.GetOrCompute(ctx, "all", activeMatchesTTL, func(ctx context.Context) ([]ActiveMatch, error) {
		raw, err := retry.Do(ctx, func(ctx context.Context) (*protocol.RawResponse, error) {
			out := &protocol.RawResponse{}
			_, err := proxyclient.Call(ctx, s.proxy, proxyclient.Request{
				Kind:         proxyclient.MessageGetActiveMatches,
				Body:         &protocol.GetActiveMatchesRequest{},
				CooldownTime: time.Minute,
				InAllGroups:  []string{"LowRateLimitApis"},
			}, out)
			return out, err
		})
		if err != nil {
			return nil, fmt.Errorf("analytics: fetching active matches: %w", err)
		}
		list, err := protocol.DecodeActiveMatches(raw.Data)
		if err != nil {
			return nil, fmt.Errorf("analytics: decoding active matches: %w", err)
		}
		return list.Matches, nil
	})
	if err != nil {
		return nil, err
	}

	if accountID == 0 {
		return matches, nil
	}
	filtered := make([]ActiveMatch, 0, len(matches))
	for _, m := range matches {
		if containsAccountID(m.PlayerAccountIDs, accountID) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func containsAccountID(ids []uint32, accountID uint32) bool {
	for _, id := range ids {
		if id == accountID {
			return true
		}
	}
	return false
}
