// Package middleware implements the gateway's per-route middleware
// stack: feature-flag gating, rate-limit enforcement, and Cache-Control
// stamping, plus the fallback 404 handler for unmatched routes.
package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/clientid"
	"github.com/deadlock-api/gatekeeper/internal/featureflag"
	"github.com/deadlock-api/gatekeeper/internal/ratelimit"
)

// FeatureFlag returns 404 for every request to this route when name is
// disabled in flags (entries absent from the flags file default to
// enabled, so this is opt-out rather than opt-in).
func FeatureFlag(flags *featureflag.Set, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !flags.Enabled(name) {
				NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies declared quotas to every request on this route,
// rejecting with the apierr envelope (via rl.Apply's returned error) or
// a 429 when the most-constrained quota is exceeded. bucketKey
// identifies the endpoint for the sliding-window keys.
func RateLimit(rl *ratelimit.RateLimiter, logger *slog.Logger, bucketKey string, quotas []ratelimit.Quota) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ratelimit.Identity{IP: clientid.ExtractIP(r)}
			if key, ok := clientid.ExtractAPIKey(r); ok {
				identity.RawAPIKey = &key
			}

			status, err := rl.Apply(r.Context(), identity, bucketKey, quotas)
			if status != nil {
				status.WriteHeaders(w)
			}
			if err != nil {
				apierr.WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CacheControl stamps every 2xx response on this route with max-age,
// and optionally stale-while-revalidate / stale-if-error directives.
func CacheControl(maxAge, staleWhileRevalidate, staleIfError time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("max-age=%d", int(maxAge.Seconds()))
	if staleWhileRevalidate > 0 {
		value += fmt.Sprintf(", stale-while-revalidate=%d", int(staleWhileRevalidate.Seconds()))
	}
	if staleIfError > 0 {
		value += fmt.Sprintf(", stale-if-error=%d", int(staleIfError.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, value: value}, r)
		})
	}
}

type cacheControlWriter struct {
	http.ResponseWriter
	value string
	wrote bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.wrote && code >= 200 && code < 300 {
		w.Header().Set("Cache-Control", w.value)
	}
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// notFoundBody is the JSON envelope the fallback handler returns.
type notFoundBody struct {
	Error string `json:"error"`
	URI   string `json:"uri"`
}

// NotFound is the router's catch-all 404 handler: it echoes the
// attempted URI back in the JSON error envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(notFoundBody{
		Error: "not found",
		URI:   r.URL.RequestURI(),
	})
}
