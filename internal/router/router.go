// Package router wires every /v1/... endpoint onto a chi.Router: it
// parses path and query parameters, applies the feature-flag/rate-limit/
// cache-control middleware stack per route, calls into the domain
// packages, and writes the shared JSON envelopes.
package router

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deadlock-api/gatekeeper/internal/analytics"
	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/artifact"
	"github.com/deadlock-api/gatekeeper/internal/clientid"
	"github.com/deadlock-api/gatekeeper/internal/custommatch"
	"github.com/deadlock-api/gatekeeper/internal/featureflag"
	"github.com/deadlock-api/gatekeeper/internal/httpserver"
	gmiddleware "github.com/deadlock-api/gatekeeper/internal/middleware"
	"github.com/deadlock-api/gatekeeper/internal/privacy"
	"github.com/deadlock-api/gatekeeper/internal/ratelimit"
	"github.com/deadlock-api/gatekeeper/internal/spectator"
)

// Deps are every service the router dispatches to.
type Deps struct {
	Logger        *slog.Logger
	Artifact      *artifact.Resolver
	Spectator     *spectator.Engine
	CustomMatch   *custommatch.Manager
	Analytics     *analytics.Service
	Privacy       *privacy.Guard
	RateLimiter   *ratelimit.RateLimiter
	Flags         *featureflag.Set
	InternalKey   string
}

// defaultQuotas is the general per-route quota applied when a route has
// no reason to declare its own: 1000 requests per 10 seconds per IP and
// 700 per second shared globally, matching the watch-tab/analytics
// traffic shape this gateway fronts.
var defaultQuotas = []ratelimit.Quota{
	{Limit: 1000, Period: 10 * time.Second, Scope: ratelimit.ScopeIP},
	{Limit: 700, Period: time.Second, Scope: ratelimit.ScopeGlobal},
}

// lowRateQuotas gates the handful of endpoints that make an expensive or
// tightly-quota'd coordinator call per request (leaderboard, active
// matches, custom-match creation).
var lowRateQuotas = []ratelimit.Quota{
	{Limit: 60, Period: time.Minute, Scope: ratelimit.ScopeIP},
	{Limit: 700, Period: time.Second, Scope: ratelimit.ScopeGlobal},
}

// gated composes the feature-flag and rate-limit middleware for one
// route: flag check first (so a disabled route never touches Redis),
// then rate limiting.
func (d *Deps) gated(name string, quotas []ratelimit.Quota) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return gmiddleware.FeatureFlag(d.Flags, name)(
			gmiddleware.RateLimit(d.RateLimiter, d.Logger, name, quotas)(next),
		)
	}
}

// New builds the /v1 router.
func New(d *Deps) chi.Router {
	r := chi.NewRouter()
	r.NotFound(gmiddleware.NotFound)
	r.MethodNotAllowed(gmiddleware.NotFound)

	r.With(d.gated("matches.salts", defaultQuotas)).Get("/matches/{match_id}/salts", d.handleSalts)
	r.With(d.gated("matches.metadata", defaultQuotas)).Get("/matches/{match_id}/metadata", d.handleMetadataDecoded)
	r.With(d.gated("matches.metadata", defaultQuotas)).Get("/matches/{match_id}/metadata/raw", d.handleMetadataRaw)
	r.With(d.gated("matches.salts.ingest", defaultQuotas)).Post("/matches/salts", d.handleIngestSalts)
	r.With(d.gated("matches.bulk_metadata", defaultQuotas)).Post("/matches/bulk-metadata", d.handleBulkMetadata)
	r.With(d.gated("matches.recently_fetched", defaultQuotas)).Get("/matches/recently-fetched", d.handleRecentlyFetched)

	r.With(d.gated("matches.demo.live", defaultQuotas)).Get("/matches/{match_id}/demo/live", d.handleDemoLive)
	r.With(d.gated("matches.demo.events", defaultQuotas)).Get("/matches/{match_id}/demo/events", d.handleDemoEvents)

	r.With(d.gated("matches.active", lowRateQuotas)).Get("/matches/active", d.handleActiveMatches)

	r.With(d.gated("matches.custom.create", lowRateQuotas)).Post("/matches/custom", d.handleCustomMatchCreate)
	r.With(d.gated("matches.custom.leave", defaultQuotas)).Delete("/matches/custom/{party_id}", d.handleCustomMatchLeave)
	r.With(d.gated("matches.custom.ready", defaultQuotas)).Post("/matches/custom/{party_id}/ready", d.handleCustomMatchReady)
	r.With(d.gated("matches.custom.start", defaultQuotas)).Post("/matches/custom/{party_id}/start", d.handleCustomMatchStart)
	r.With(d.gated("matches.custom.match_id", defaultQuotas)).Get("/matches/custom/{party_id}/match-id", d.handleCustomMatchID)

	r.With(d.gated("players.match_history", defaultQuotas)).Get("/players/{account_id}/match-history", d.handleMatchHistory)
	r.With(d.gated("players.mmr", defaultQuotas)).Get("/players/mmr", d.handleMMR)
	r.With(d.gated("players.opt_out", defaultQuotas)).Post("/players/{account_id}/opt-out", d.handleOptOut)
	r.With(d.gated("players.opt_in", defaultQuotas)).Post("/players/{account_id}/opt-in", d.handleOptIn)

	r.With(d.gated("analytics.hero_stats", defaultQuotas)).Get("/analytics/hero-stats", d.handleHeroStats)
	r.With(d.gated("analytics.hero_win_loss_stats", defaultQuotas)).Get("/analytics/hero-win-loss-stats", d.handleHeroWinLossStats)
	r.With(d.gated("analytics.kill_death_stats", defaultQuotas)).Get("/analytics/kill-death-stats", d.handleKillDeathStats)
	r.With(d.gated("analytics.hero_counters", defaultQuotas)).Get("/analytics/hero-counters", d.handleHeroCounters)
	r.With(d.gated("analytics.badge_distribution", defaultQuotas)).Get("/analytics/badge-distribution", d.handleBadgeDistribution)

	r.With(d.gated("leaderboard", lowRateQuotas)).Get("/leaderboard/{region}", d.handleLeaderboard)

	return r
}

// requestIdentity resolves the caller's rate-limit identity from the
// inbound request, for domain calls that apply their own internal quota
// beneath the route-level one (e.g. the salts proxy-fetch gate).
func requestIdentity(r *http.Request) ratelimit.Identity {
	identity := ratelimit.Identity{IP: clientid.ExtractIP(r)}
	if key, ok := clientid.ExtractAPIKey(r); ok {
		identity.RawAPIKey = &key
	}
	return identity
}

func pathUint64(r *http.Request, param string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, param), 10, 64)
}

func queryBool(r *http.Request, name string) bool {
	v := strings.ToLower(r.URL.Query().Get(name))
	return v == "1" || v == "true" || v == "yes"
}

func queryUint64Ptr(r *http.Request, name string) *uint64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func queryInt64Ptr(r *http.Request, name string) *int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func queryUint8Ptr(r *http.Request, name string) *uint8 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return nil
	}
	out := uint8(n)
	return &out
}

func queryBoolPtr(r *http.Request, name string) *bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	b := v == "1" || strings.EqualFold(v, "true")
	return &b
}

func queryUint32List(r *http.Request, name string) []uint32 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]uint32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			continue
		}
		out = append(out, uint32(n))
	}
	return out
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	httpserver.RespondError(w, logger, err)
}

func writeOK(w http.ResponseWriter, v any) {
	httpserver.Respond(w, http.StatusOK, v)
}

var errBadMatchID = apierr.BadRequest("match_id must be a positive integer", nil)
var errBadPartyID = apierr.BadRequest("party_id must be a positive integer", nil)
var errBadAccountID = apierr.BadRequest("account_id must be a positive integer", nil)
