// Package clientid resolves the two pieces of identity every inbound
// request carries: a client IP (derived from forwarding headers) and an
// optional API key, validated against the metadata store and cached.
package clientid

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deadlock-api/gatekeeper/internal/resultcache"
)

// keyPrefix is stripped from the X-API-Key header before parsing the
// remainder as a UUID, tolerating one legacy ASCII prefix.
const keyPrefix = "dl_"

// ExtractIP returns the client IP, preferring CF-Connecting-IP, then
// X-Real-IP, then X-Forwarded-For's first hop, then RemoteAddr.
func ExtractIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	if host == "" {
		return "0.0.0.0"
	}
	return host
}

// ExtractAPIKey parses the X-API-Key header into a UUID, tolerating a
// single "dl_" prefix. Returns false if the header is absent or malformed.
func ExtractAPIKey(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-API-Key")
	if raw == "" {
		return uuid.UUID{}, false
	}
	raw = strings.TrimPrefix(raw, keyPrefix)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// APIKey is a metadata-store row identifying a client.
type APIKey struct {
	ID       uuid.UUID
	Key      uuid.UUID
	Disabled bool
}

// KeyValidator validates API keys against the metadata store, caching
// positive and negative results for one hour.
type KeyValidator struct {
	db    *pgxpool.Pool
	cache *resultcache.Cache[bool]
}

// NewKeyValidator builds a KeyValidator backed by db.
func NewKeyValidator(db *pgxpool.Pool) *KeyValidator {
	return &KeyValidator{
		db:    db,
		cache: resultcache.New[bool]("api_key_valid"),
	}
}

// Valid reports whether key exists in the metadata store with a
// non-true disabled flag. Invalid/unknown keys are treated identically
// to absent ones by callers.
func (v *KeyValidator) Valid(ctx context.Context, key uuid.UUID) bool {
	ok, err := v.cache.GetOrCompute(ctx, key.String(), time.Hour, func(ctx context.Context) (bool, error) {
		var count int
		err := v.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM api_keys WHERE key = $1 AND disabled IS NOT TRUE`, key,
		).Scan(&count)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	})
	if err != nil {
		return false
	}
	return ok
}
