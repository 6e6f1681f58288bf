// Package ratelimit implements the sliding-window quota enforcement
// described for the gateway: per-IP, per-API-key, and global quotas
// against a shared Redis instance, with per-key custom overrides and an
// emergency mode that rejects unauthenticated traffic outright.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/clientid"
	"github.com/deadlock-api/gatekeeper/internal/resultcache"
)

// maxTTLSeconds bounds how long a quota-set window entry is kept in Redis,
// regardless of the quota period, so stale prefixes don't linger forever.
const maxTTLSeconds = 3600

// Scope classifies which identity a quota is keyed against.
type Scope int

const (
	ScopeIP Scope = iota
	ScopeKey
	ScopeGlobal
)

// Quota is a single rate limit declaration.
type Quota struct {
	Limit  uint32
	Period time.Duration
	Scope  Scope
}

// Status is the outcome of checking one quota against its window.
type Status struct {
	Quota         Quota
	Requests      uint32
	OldestRequest time.Time
}

// Remaining is the invariant remaining = max(0, limit - requests).
func (s Status) Remaining() uint32 {
	if s.Requests >= s.Quota.Limit {
		return 0
	}
	return s.Quota.Limit - s.Requests
}

func (s Status) IsExceeded() bool { return s.Remaining() == 0 }

// NextRequestIn is the wait until the oldest request in the window ages
// out, zero when the quota isn't currently exceeded.
func (s Status) NextRequestIn() time.Duration {
	if !s.IsExceeded() {
		return 0
	}
	d := time.Until(s.OldestRequest.Add(s.Quota.Period))
	if d < 0 {
		return 0
	}
	return d
}

// WriteHeaders stamps the standard rate-limit response headers.
func (s Status) WriteHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("RateLimit-Limit", strconv.FormatUint(uint64(s.Quota.Limit), 10))
	h.Set("RateLimit-Period", strconv.FormatInt(int64(s.Quota.Period/time.Second), 10))
	h.Set("RateLimit-Remaining", strconv.FormatUint(uint64(s.Remaining()), 10))
	retry := int64(s.NextRequestIn() / time.Second)
	h.Set("RateLimit-Reset", strconv.FormatInt(retry, 10))
	h.Set("Retry-After", strconv.FormatInt(retry, 10))
}

// Identity is the caller's resolved identity for this request.
type Identity struct {
	IP        string
	RawAPIKey *uuid.UUID // nil if no key header was presented
}

// ErrAuthRequired is wrapped into an apierr when KEY-scope quotas are
// declared with no IP fallback and no valid key is present.
var ErrAuthRequired = fmt.Errorf("ratelimit: a valid API key is required for this endpoint")

// RateLimiter evaluates declared quotas against Redis sorted-set windows.
type RateLimiter struct {
	redis         *redis.Client
	metaDB        *pgxpool.Pool
	keys          *clientid.KeyValidator
	logger        *slog.Logger
	emergencyMode bool

	customQuotas *resultcache.Cache[[]Quota]
}

// New builds a RateLimiter. metaDB is the metadata store used for custom
// per-key quota overrides.
func New(rdb *redis.Client, metaDB *pgxpool.Pool, logger *slog.Logger, emergencyMode bool) *RateLimiter {
	return &RateLimiter{
		redis:         rdb,
		metaDB:        metaDB,
		keys:          clientid.NewKeyValidator(metaDB),
		logger:        logger,
		emergencyMode: emergencyMode,
		customQuotas:  resultcache.New[[]Quota]("custom_quotas"),
	}
}

// Apply runs the full algorithm: validates the key, rejects KEY-only
// quotas with no key and no IP fallback, checks emergency mode,
// increments the sliding window for every relevant prefix, resolves
// the effective quota list (custom overrides, or the declaration minus
// IP-scope when a key is present and a KEY-scope quota was declared),
// and returns the most-constrained
// status. A nil, nil result means no quotas were declared.
func (rl *RateLimiter) Apply(ctx context.Context, identity Identity, bucketKey string, declared []Quota) (*Status, error) {
	if len(declared) == 0 {
		return nil, nil
	}

	var apiKey *uuid.UUID
	if identity.RawAPIKey != nil && rl.keys.Valid(ctx, *identity.RawAPIKey) {
		apiKey = identity.RawAPIKey
	}

	hasKeyQuota := false
	for _, q := range declared {
		if q.Scope == ScopeKey {
			hasKeyQuota = true
			break
		}
	}
	if hasKeyQuota && apiKey == nil {
		hasIPFallback := false
		for _, q := range declared {
			if q.Scope == ScopeIP {
				hasIPFallback = true
				break
			}
		}
		if !hasIPFallback {
			return nil, apierr.Forbidden(ErrAuthRequired.Error(), ErrAuthRequired)
		}
	}

	if rl.emergencyMode && apiKey == nil {
		return nil, apierr.ServiceUnavailable("service is in emergency mode", nil)
	}

	prefix := identity.IP
	if apiKey != nil {
		prefix = apiKey.String()
	}

	if err := rl.incrementKey(ctx, prefix, bucketKey); err != nil {
		rl.logger.Error("rate limiter: incrementing key failed, degrading open", "error", err, "bucket", bucketKey)
		return nil, nil
	}

	quotas := declared
	if apiKey != nil {
		custom, err := rl.customQuotasFor(ctx, *apiKey, bucketKey)
		if err != nil {
			rl.logger.Error("rate limiter: custom quota lookup failed", "error", err)
		}
		if len(custom) > 0 {
			quotas = custom
		} else if hasKeyQuota {
			filtered := make([]Quota, 0, len(declared))
			for _, q := range declared {
				if q.Scope != ScopeIP {
					filtered = append(filtered, q)
				}
			}
			quotas = filtered
		}
	}

	var best *Status
	for _, q := range quotas {
		key := bucketKey
		if q.Scope != ScopeGlobal {
			key = prefix + ":" + bucketKey
		}

		status, err := rl.checkRequests(ctx, key, q)
		if err != nil {
			rl.logger.Error("rate limiter: window read failed, degrading open", "error", err, "bucket", bucketKey)
			continue
		}

		if status.IsExceeded() {
			return &status, apierr.TooManyRequests("rate limit exceeded", nil)
		}

		if best == nil || status.Remaining() < best.Remaining() {
			s := status
			best = &s
		}
	}

	return best, nil
}

// incrementKey runs the per-prefix and global sliding-window maintenance
// in a single pipeline: trim entries older than maxTTLSeconds, add the
// current timestamp, and refresh the set's own expiry.
func (rl *RateLimiter) incrementKey(ctx context.Context, prefix, bucketKey string) error {
	now := time.Now().Unix()
	prefixedKey := prefix + ":" + bucketKey

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, prefixedKey, "0", strconv.FormatInt(now-maxTTLSeconds, 10))
	pipe.ZAdd(ctx, prefixedKey, redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, prefixedKey, maxTTLSeconds*time.Second)
	pipe.ZRemRangeByScore(ctx, bucketKey, "0", strconv.FormatInt(now-maxTTLSeconds, 10))
	pipe.ZAdd(ctx, bucketKey, redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, bucketKey, maxTTLSeconds*time.Second)

	_, err := pipe.Exec(ctx)
	return err
}

// checkRequests reads the window [now-period, now] for key. The window
// read happens after incrementKey has already inserted the current
// request's timestamp, so the raw count includes it; requests is reported
// as count-1 to compensate, matching the documented off-by-one.
func (rl *RateLimiter) checkRequests(ctx context.Context, key string, quota Quota) (Status, error) {
	now := time.Now().Unix()
	min := now - int64(quota.Period/time.Second)

	members, err := rl.redis.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(min, 10),
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return Status{}, err
	}

	oldest := time.Now().Add(-maxTTLSeconds * time.Second)
	var oldestTS int64 = now
	for _, m := range members {
		ts, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		if ts < oldestTS {
			oldestTS = ts
		}
	}
	if len(members) > 0 {
		oldest = time.Unix(oldestTS, 0)
	}

	requests := len(members) - 1
	if requests < 0 {
		requests = 0
	}

	return Status{
		Quota:         quota,
		Requests:      uint32(requests),
		OldestRequest: oldest,
	}, nil
}

// customQuotasFor looks up per-(key, bucket) overrides in the metadata
// store, cached for ten minutes.
func (rl *RateLimiter) customQuotasFor(ctx context.Context, apiKey uuid.UUID, bucketKey string) ([]Quota, error) {
	return rl.customQuotas.GetOrCompute(ctx, apiKey.String()+"-"+bucketKey, 10*time.Minute, func(ctx context.Context) ([]Quota, error) {
		rows, err := rl.metaDB.Query(ctx,
			`SELECT l.limit_count, l.period_seconds FROM api_key_limits l JOIN api_keys k ON k.id = l.api_key_id WHERE k.key = $1 AND l.bucket_key = $2`,
			apiKey, bucketKey,
		)
		if err != nil {
			return nil, fmt.Errorf("querying custom quotas: %w", err)
		}
		defer rows.Close()

		var quotas []Quota
		for rows.Next() {
			var limit uint32
			var periodSeconds int64
			if err := rows.Scan(&limit, &periodSeconds); err != nil {
				return nil, fmt.Errorf("scanning custom quota row: %w", err)
			}
			quotas = append(quotas, Quota{
				Limit:  limit,
				Period: time.Duration(periodSeconds) * time.Second,
				Scope:  ScopeKey,
			})
		}
		return quotas, rows.Err()
	})
}
