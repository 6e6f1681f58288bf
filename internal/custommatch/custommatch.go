// Package custommatch implements the custom-match lifecycle: create a
// party through the bot fleet, wait for its join code, switch the
// creating bot into the spectator slot, mark the party ready, and leave
// automatically 15 minutes after the party was created.
package custommatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/telemetry"
)

// leaveAfter is how long after creation the background cleanup timer
// leaves a custom-match party, whether or not its match was started.
const leaveAfter = 15 * time.Minute

const (
	codePollAttempts = 100
	codePollInterval = 100 * time.Millisecond
)

// Party is the outcome of a successful create: the GC's party id, the
// bot handling it, and the spectator-joinable party code.
type Party struct {
	PartyID     uint64
	PartyCode   string
	BotUsername string
	AccountID   uint64
}

// Manager drives the lifecycle.
type Manager struct {
	redis  *redis.Client
	proxy  *proxyclient.Client
	logger *slog.Logger
}

// NewManager builds a Manager.
func NewManager(rdb *redis.Client, proxy *proxyclient.Client, logger *slog.Logger) *Manager {
	return &Manager{redis: rdb, proxy: proxy, logger: logger}
}

func partyKey(partyID uint64) string {
	return fmt.Sprintf("%d", partyID)
}

func partyMatchIDKey(partyID uint64) string {
	return fmt.Sprintf("%d:match-id", partyID)
}

// Create runs the full create -> poll code -> switch slot -> ready
// sequence and starts the 15-minute auto-leave timer in the
// background. The timer runs on its own background context with no
// reference to request-scoped state, so it survives the original request.
func (m *Manager) Create(ctx context.Context) (Party, error) {
	partyID, username, err := m.createParty(ctx)
	if err != nil {
		return Party{}, fmt.Errorf("custommatch: creating party: %w", err)
	}

	telemetry.CustomMatchesActive.Inc()
	go m.scheduleAutoLeave(partyID, username)

	code, err := m.waitForPartyCode(ctx, partyID)
	if err != nil {
		return Party{}, fmt.Errorf("custommatch: waiting for party code: %w", err)
	}

	info, err := parsePartyInfo(code)
	if err != nil {
		return Party{}, err
	}

	if err := m.switchToSpectatorSlot(ctx, username, partyID, info.AccountID); err != nil {
		return Party{}, fmt.Errorf("custommatch: switching to spectator slot: %w", err)
	}

	if err := m.markReady(ctx, username, partyID); err != nil {
		return Party{}, fmt.Errorf("custommatch: marking ready: %w", err)
	}

	return Party{
		PartyID:     partyID,
		PartyCode:   info.Code,
		BotUsername: username,
		AccountID:   info.AccountID,
	}, nil
}

// Leave makes the bot leave partyID's lobby immediately, ahead of the
// automatic 15-minute timer. Exposed so callers can free up a bot slot
// as soon as a custom match is no longer needed.
func (m *Manager) Leave(ctx context.Context, partyID uint64) error {
	info, err := m.getPartyInfo(ctx, partyID)
	if err != nil {
		return err
	}
	req := proxyclient.Request{
		Kind:     proxyclient.MessageLeaveParty,
		Body:     &protocol.PartyActionRequest{PartyID: partyKey(partyID)},
		Username: info.Username,
	}
	out := &protocol.PartyActionRequest{}
	_, err = proxyclient.Call(ctx, m.proxy, req, out)
	return err
}

// Ready marks partyID ready for a match to start, waiting up to 100x100ms
// for the party's code to be assigned if it hasn't appeared yet.
func (m *Manager) Ready(ctx context.Context, partyID uint64) error {
	code, err := m.waitForPartyCode(ctx, partyID)
	if err != nil {
		return fmt.Errorf("custommatch: waiting for party code: %w", err)
	}
	info, err := parsePartyInfo(code)
	if err != nil {
		return err
	}
	return m.markReady(ctx, info.Username, partyID)
}

// StartMatch tells the GC to start the already-readied match for partyID.
func (m *Manager) StartMatch(ctx context.Context, partyID uint64) error {
	info, err := m.getPartyInfo(ctx, partyID)
	if err != nil {
		return err
	}
	req := proxyclient.Request{
		Kind:         proxyclient.MessageStartMatch,
		Body:         &protocol.PartyActionRequest{PartyID: partyKey(partyID)},
		CooldownTime: 10 * time.Second,
		InAllGroups:  []string{"LowRateLimitApis"},
		Username:     info.Username,
	}
	out := &protocol.PartyActionRequest{}
	_, err = proxyclient.Call(ctx, m.proxy, req, out)
	return err
}

func (m *Manager) createParty(ctx context.Context) (uint64, string, error) {
	req := proxyclient.Request{
		Kind:         proxyclient.MessageJoinParty,
		Body:         &protocol.PartyActionRequest{},
		CooldownTime: 2 * time.Hour,
	}
	out := &protocol.PartyActionRequest{}
	username, err := proxyclient.Call(ctx, m.proxy, req, out)
	if err != nil {
		return 0, "", err
	}
	partyID, err := strconv.ParseUint(out.PartyID, 10, 64)
	if err != nil {
		return 0, "", apierr.Internal("proxy returned non-numeric party id", err)
	}
	return partyID, username, nil
}

// partyInfo is the bot username, account id, and join code stored at
// partyKey once the GC assigns them.
type partyInfo struct {
	Username  string
	AccountID uint64
	Code      string
}

func parsePartyInfo(raw string) (partyInfo, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return partyInfo{}, apierr.Internal("malformed party info in KV store", nil)
	}
	accountID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return partyInfo{}, apierr.Internal("malformed account id in party info", err)
	}
	return partyInfo{Username: parts[0], AccountID: accountID, Code: parts[2]}, nil
}

// getPartyInfo fetches and parses the stored party info for an existing
// party, without waiting for it to appear.
func (m *Manager) getPartyInfo(ctx context.Context, partyID uint64) (partyInfo, error) {
	raw, err := m.redis.Get(ctx, partyKey(partyID)).Result()
	if err != nil {
		if err == redis.Nil {
			return partyInfo{}, apierr.NotFound("party not found", err)
		}
		return partyInfo{}, fmt.Errorf("custommatch: fetching party info: %w", err)
	}
	return parsePartyInfo(raw)
}

func (m *Manager) waitForPartyCode(ctx context.Context, partyID uint64) (string, error) {
	key := partyKey(partyID)
	var lastErr error
	for i := 0; i < codePollAttempts; i++ {
		code, err := m.redis.Get(ctx, key).Result()
		if err == nil {
			return code, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(codePollInterval):
		}
	}
	return "", fmt.Errorf("party code never appeared in KV store: %w", lastErr)
}

func (m *Manager) switchToSpectatorSlot(ctx context.Context, username string, partyID, accountID uint64) error {
	req := proxyclient.Request{
		Kind:         proxyclient.MessageJoinParty,
		Body:         &protocol.PartyActionRequest{PartyID: partyKey(partyID), AccountID: accountID},
		CooldownTime: 0,
		Username:     username,
	}
	out := &protocol.PartyActionRequest{}
	_, err := proxyclient.Call(ctx, m.proxy, req, out)
	return err
}

func (m *Manager) markReady(ctx context.Context, username string, partyID uint64) error {
	req := proxyclient.Request{
		Kind:         proxyclient.MessageMarkReady,
		Body:         &protocol.PartyActionRequest{PartyID: partyKey(partyID)},
		CooldownTime: 0,
		Username:     username,
	}
	out := &protocol.PartyActionRequest{}
	_, err := proxyclient.Call(ctx, m.proxy, req, out)
	return err
}

// scheduleAutoLeave waits leaveAfter and then issues a LeaveParty call,
// independent of the request that created the party.
func (m *Manager) scheduleAutoLeave(partyID uint64, username string) {
	time.Sleep(leaveAfter)
	defer telemetry.CustomMatchesActive.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req := proxyclient.Request{
		Kind:     proxyclient.MessageLeaveParty,
		Body:     &protocol.PartyActionRequest{PartyID: partyKey(partyID)},
		Username: username,
	}
	out := &protocol.PartyActionRequest{}
	if _, err := proxyclient.Call(ctx, m.proxy, req, out); err != nil {
		m.logger.Error("custommatch: auto-leave failed", "error", err, "party_id", partyID, "bot", username)
	}
}

// MatchID returns the match id a party started, once the lobby starts.
func (m *Manager) MatchID(ctx context.Context, partyID uint64) (uint64, error) {
	val, err := m.redis.Get(ctx, partyMatchIDKey(partyID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, apierr.NotFound("can't find match id", err)
		}
		return 0, fmt.Errorf("custommatch: fetching match id: %w", err)
	}
	matchID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, apierr.NotFound("can't find match id", err)
	}
	return matchID, nil
}
