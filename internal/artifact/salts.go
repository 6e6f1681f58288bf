// Package artifact resolves match replay metadata: the salts triple
// needed to compose a replay URL, and the bzip2-compressed metadata
// blob itself, through a cache-store -> primary-store -> upstream-fetch
// cascade.
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/ratelimit"
	"github.com/deadlock-api/gatekeeper/internal/resultcache"
	"github.com/deadlock-api/gatekeeper/internal/retry"
)

// saltsWatermark is the earliest match id salts were ever collected for.
const saltsWatermark = 30_742_540

// saltsProxyQuotas gates resolveSaltsUncached's call to the coordinator
// proxy, separately from and tighter than the route-level quota: a
// cache miss here costs the proxy a round trip, so it earns its own
// budget instead of riding on the generic per-route limit.
var saltsProxyQuotas = []ratelimit.Quota{
	{Limit: 5, Period: 60 * time.Second, Scope: ratelimit.ScopeIP},
	{Limit: 100, Period: 10 * time.Second, Scope: ratelimit.ScopeKey},
	{Limit: 100, Period: time.Second, Scope: ratelimit.ScopeGlobal},
}

// Salts is the triple needed to compose a match's replay asset URLs.
type Salts struct {
	MatchID      uint64
	ClusterID    uint32
	MetadataSalt uint64
	ReplaySalt   uint64
}

// HasMetadataSalt reports whether the metadata blob URL can be composed.
func (s Salts) HasMetadataSalt() bool { return s.ClusterID > 0 && s.MetadataSalt != 0 }

// HasReplaySalt reports whether the demo blob URL can be composed.
func (s Salts) HasReplaySalt() bool { return s.ClusterID > 0 && s.ReplaySalt != 0 }

// MetadataURL composes the upstream CDN URL for the metadata blob.
func (s Salts) MetadataURL() string {
	return fmt.Sprintf("http://replay%d.valve.net/1422450/%d_%d.meta.bz2", s.ClusterID, s.MatchID, s.MetadataSalt)
}

// DemoURL composes the upstream CDN URL for the demo blob.
func (s Salts) DemoURL() string {
	return fmt.Sprintf("http://replay%d.valve.net/1422450/%d_%d.dem.bz2", s.ClusterID, s.MatchID, s.ReplaySalt)
}

// Resolver implements the artifact-resolution cascade.
type Resolver struct {
	analyticsDB  *pgxpool.Pool
	proxy        *proxyclient.Client
	rateLimiter  *ratelimit.RateLimiter
	logger       *slog.Logger
	httpClient   *http.Client
	cacheStore   objectStore
	primaryStore objectStore

	saltsCache *resultcache.Cache[Salts]

	recent *recentBuffer
}

// objectStore is the subset of objectstore.Store the resolver needs,
// kept as an interface so tests can fake it without standing up S3.
type objectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// NewResolver builds a Resolver. cacheStore fronts the primary store
// for cheap re-serves; primaryStore is the long-term metadata archive.
// rateLimiter gates the proxy-fetch path on a cache miss, separately
// from whatever quota the caller already applied at the route level.
func NewResolver(analyticsDB *pgxpool.Pool, proxy *proxyclient.Client, rateLimiter *ratelimit.RateLimiter, cacheStore, primaryStore objectStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		analyticsDB:  analyticsDB,
		proxy:        proxy,
		rateLimiter:  rateLimiter,
		logger:       logger,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		cacheStore:   cacheStore,
		primaryStore: primaryStore,
		saltsCache:   resultcache.New[Salts]("salts"),
		recent:       newRecentBuffer(500),
	}
}

// ResolveSalts runs watermark rejection, an analytics store lookup, a
// permanently-unavailable short circuit, and a proxy-gated fetch on
// miss. needsDemo additionally requires a replay salt to be present
// before treating the row as resolved. identity is only consulted on
// a cache miss, to gate the proxy call itself.
func (r *Resolver) ResolveSalts(ctx context.Context, identity ratelimit.Identity, matchID uint64, needsDemo bool) (Salts, error) {
	if matchID < saltsWatermark {
		return Salts{}, apierr.NotFound("match predates salts collection", nil)
	}

	key := fmt.Sprintf("%d:%v", matchID, needsDemo)
	return r.saltsCache.GetOrCompute(ctx, key, time.Hour, func(ctx context.Context) (Salts, error) {
		return r.resolveSaltsUncached(ctx, identity, matchID, needsDemo)
	})
}

func (r *Resolver) resolveSaltsUncached(ctx context.Context, identity ratelimit.Identity, matchID uint64, needsDemo bool) (Salts, error) {
	salts, found, err := r.lookupSalts(ctx, matchID)
	if err != nil {
		return Salts{}, fmt.Errorf("artifact: looking up salts: %w", err)
	}
	if found && salts.HasMetadataSalt() && (!needsDemo || salts.HasReplaySalt()) {
		return salts, nil
	}

	hasMetadata, err := r.metadataExists(ctx, matchID)
	if err != nil {
		return Salts{}, fmt.Errorf("artifact: checking metadata existence: %w", err)
	}
	if hasMetadata {
		return Salts{}, apierr.NotFound("salts permanently unavailable for this match", nil)
	}

	if _, err := r.rateLimiter.Apply(ctx, identity, "matches.salts.proxy", saltsProxyQuotas); err != nil {
		return Salts{}, err
	}

	resp, username, err := r.fetchSaltsFromProxy(ctx, matchID)
	if err != nil {
		return Salts{}, fmt.Errorf("artifact: fetching salts from proxy: %w", err)
	}
	if !resp.Succeeded() {
		return Salts{}, apierr.NotFound("salts not resolvable", nil)
	}

	resolved := Salts{
		MatchID:      matchID,
		ClusterID:    resp.ClusterID,
		MetadataSalt: resp.MetadataSalt,
		ReplaySalt:   resp.ReplaySalt,
	}
	if err := r.insertSalts(ctx, resolved, "api"); err != nil {
		r.logger.Error("artifact: failed to persist resolved salts", "error", err, "match_id", matchID, "bot", username)
	}
	return resolved, nil
}

func (r *Resolver) lookupSalts(ctx context.Context, matchID uint64) (Salts, bool, error) {
	var s Salts
	s.MatchID = matchID
	err := r.analyticsDB.QueryRow(ctx,
		`SELECT cluster_id, metadata_salt, replay_salt FROM match_salts WHERE match_id = $1`,
		matchID,
	).Scan(&s.ClusterID, &s.MetadataSalt, &s.ReplaySalt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Salts{}, false, nil
		}
		return Salts{}, false, err
	}
	return s, true, nil
}

func (r *Resolver) metadataExists(ctx context.Context, matchID uint64) (bool, error) {
	var exists bool
	err := r.analyticsDB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM match_metadata WHERE match_id = $1)`,
		matchID,
	).Scan(&exists)
	return exists, err
}

type saltsProxyResult struct {
	response *protocol.GetMatchMetaDataResponse
	username string
}

func (r *Resolver) fetchSaltsFromProxy(ctx context.Context, matchID uint64) (*protocol.GetMatchMetaDataResponse, string, error) {
	result, err := retry.Do(ctx, func(ctx context.Context) (saltsProxyResult, error) {
		req := proxyclient.Request{
			Kind:         proxyclient.MessageGetMatchMetaData,
			Body:         &protocol.GetMatchMetaDataRequest{MatchID: matchID},
			CooldownTime: 2 * time.Second,
		}
		out := &protocol.GetMatchMetaDataResponse{}
		username, err := proxyclient.Call(ctx, r.proxy, req, out)
		return saltsProxyResult{response: out, username: username}, err
	})
	if err != nil {
		return nil, "", err
	}
	return result.response, result.username, nil
}

func (r *Resolver) insertSalts(ctx context.Context, s Salts, ingestingUsername string) error {
	_, err := r.analyticsDB.Exec(ctx,
		`INSERT INTO match_salts (match_id, cluster_id, metadata_salt, replay_salt, ingesting_username)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (match_id) DO UPDATE SET
		   cluster_id = EXCLUDED.cluster_id,
		   metadata_salt = EXCLUDED.metadata_salt,
		   replay_salt = EXCLUDED.replay_salt,
		   ingesting_username = EXCLUDED.ingesting_username`,
		s.MatchID, s.ClusterID, s.MetadataSalt, s.ReplaySalt, ingestingUsername,
	)
	return err
}
