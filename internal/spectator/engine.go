package spectator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/resultcache"
	"github.com/deadlock-api/gatekeeper/internal/telemetry"
)

// liveWindow is how far back a match must have started to still be
// considered provably non-live.
const liveWindow = 4 * time.Hour

// pollAttempts and pollInterval bound how long the engine waits for the
// bot fleet to report demo availability after a spectate request.
const (
	pollAttempts = 60
	pollInterval = 500 * time.Millisecond
)

// spectateFor is how long a spectator session is kept before the
// background cleanup timer makes the bot leave the lobby automatically.
const spectateFor = 15 * time.Minute

// Engine drives the live-match spectate workflow.
type Engine struct {
	analyticsDB   *pgxpool.Pool
	proxy         *proxyclient.Client
	httpClient    *http.Client
	demoHost      string
	clientVersion uint32
	logger        *slog.Logger

	spectateCache *resultcache.Cache[bool]

	mu      sync.Mutex
	left    map[uint64]bool
	pending map[uint64]bool
}

// NewEngine builds an Engine. demoHost is the base URL of the CDN
// serving live demo broadcasts.
func NewEngine(analyticsDB *pgxpool.Pool, proxy *proxyclient.Client, demoHost string, clientVersion uint32, logger *slog.Logger) *Engine {
	return &Engine{
		analyticsDB:   analyticsDB,
		proxy:         proxy,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		demoHost:      demoHost,
		clientVersion: clientVersion,
		logger:        logger,
		spectateCache: resultcache.New[bool]("spectate"),
		left:          make(map[uint64]bool),
		pending:       make(map[uint64]bool),
	}
}

// demoURL composes the broadcast URL for a match's live demo.
func (e *Engine) demoURL(matchID uint64) string {
	return fmt.Sprintf("%s/tv/%d", e.demoHost, matchID)
}

// EnsureLive rejects requests for matches that provably aren't live:
// any match id at or before the most recent match that started more
// than liveWindow ago cannot still be in progress.
func (e *Engine) EnsureLive(ctx context.Context, matchID uint64) error {
	var watermark uint64
	err := e.analyticsDB.QueryRow(ctx,
		`SELECT COALESCE(MAX(match_id), 0) FROM matches WHERE start_time <= $1`,
		time.Now().Add(-liveWindow),
	).Scan(&watermark)
	if err != nil {
		return fmt.Errorf("spectator: checking live watermark: %w", err)
	}
	if matchID <= watermark {
		return apierr.NotFound("match is not live", nil)
	}
	return nil
}

// EnsureSpectating makes sure the bot fleet is spectating matchID,
// polling for demo availability up to 60x500ms after issuing a
// SpectateLobby call. The spectate call itself is cached for an hour by
// match id to coalesce concurrent requests. A session that already ran
// its 15-minute auto-leave timer returns StateLeft without re-joining.
func (e *Engine) EnsureSpectating(ctx context.Context, matchID uint64) (State, error) {
	e.mu.Lock()
	left := e.left[matchID]
	e.mu.Unlock()
	if left {
		return StateLeft, nil
	}

	if available, err := e.probeDemo(ctx, matchID); err == nil && available {
		return StateAvailable, nil
	}

	var botUsername string
	_, err := e.spectateCache.GetOrCompute(ctx, fmt.Sprintf("%d", matchID), time.Hour, func(ctx context.Context) (bool, error) {
		req := proxyclient.Request{
			Kind: proxyclient.MessageSpectateLobby,
			Body: &protocol.SpectateLobbyRequest{
				MatchID:       matchID,
				ClientVersion: e.clientVersion,
				Platform:      "linux",
			},
			CooldownTime: 2 * time.Second,
		}
		out := &protocol.SpectateLobbyResponse{}
		username, err := proxyclient.Call(ctx, e.proxy, req, out)
		botUsername = username
		return out.Result == protocol.ResultSuccess, err
	})
	if err != nil {
		return StateFailed, fmt.Errorf("spectator: requesting spectate: %w", err)
	}

	e.scheduleAutoLeaveOnce(matchID, botUsername)

	for i := 0; i < pollAttempts; i++ {
		available, err := e.probeDemo(ctx, matchID)
		if err == nil && available {
			return StateAvailable, nil
		}

		select {
		case <-ctx.Done():
			return StateFailed, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	return StateFailed, apierr.NotFound("demo did not become available", nil)
}

// scheduleAutoLeaveOnce starts the auto-leave timer for matchID the
// first time it's called for that match; later calls (cache hits that
// never reached the proxy, or repeated SSE connections) are no-ops.
func (e *Engine) scheduleAutoLeaveOnce(matchID uint64, username string) {
	e.mu.Lock()
	if e.pending[matchID] {
		e.mu.Unlock()
		return
	}
	e.pending[matchID] = true
	e.mu.Unlock()

	telemetry.SpectatorBotsActive.Inc()
	go e.scheduleAutoLeave(matchID, username)
}

// scheduleAutoLeave sleeps out the session's fixed wall-clock lifetime,
// then tells the bot to leave the lobby and marks the session left so
// the next EnsureSpectating call doesn't rejoin it.
func (e *Engine) scheduleAutoLeave(matchID uint64, username string) {
	time.Sleep(spectateFor)
	defer telemetry.SpectatorBotsActive.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req := proxyclient.Request{
		Kind:     proxyclient.MessageLeaveParty,
		Body:     &protocol.PartyActionRequest{PartyID: fmt.Sprintf("%d", matchID)},
		Username: username,
	}
	out := &protocol.PartyActionRequest{}
	if _, err := proxyclient.Call(ctx, e.proxy, req, out); err != nil {
		e.logger.Error("spectator: auto-leave failed", "error", err, "match_id", matchID, "bot", username)
	}

	e.mu.Lock()
	e.left[matchID] = true
	delete(e.pending, matchID)
	e.mu.Unlock()
	e.spectateCache.Invalidate(fmt.Sprintf("%d", matchID))
}

func (e *Engine) probeDemo(ctx context.Context, matchID uint64) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, e.demoURL(matchID), nil)
	if err != nil {
		return false, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK, nil
}

// StreamRaw relays the live demo broadcast for matchID to w as raw
// bytes until the body ends or ctx is canceled.
func (e *Engine) StreamRaw(ctx context.Context, matchID uint64, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.demoURL(matchID), nil)
	if err != nil {
		return fmt.Errorf("spectator: building demo stream request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spectator: opening demo stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apierr.NotFound("live demo stream not available", nil)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("spectator: relaying demo stream: %w", err)
	}
	return nil
}

// OpenDemoBody opens the live demo broadcast and returns its body for
// the caller to parse (e.g. via internal/protocol/demoparser). The
// caller owns closing the returned ReadCloser.
func (e *Engine) OpenDemoBody(ctx context.Context, matchID uint64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.demoURL(matchID), nil)
	if err != nil {
		return nil, fmt.Errorf("spectator: building demo stream request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spectator: opening demo stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, apierr.NotFound("live demo stream not available", nil)
	}
	return resp.Body, nil
}
