package middleware

import (
	"net/http"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/widgetversion"
)

// WidgetVersion rejects requests from a known platform whose declared
// client version is older than the configured minimum. Requests that
// don't declare X-Client-Platform/X-Client-Version are passed through
// unchecked — the gate only applies to clients that opt into declaring
// themselves.
func WidgetVersion(versions *widgetversion.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			platform := r.Header.Get("X-Client-Platform")
			clientVersion := r.Header.Get("X-Client-Version")
			if platform == "" || clientVersion == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !versions.Supported(platform, clientVersion) {
				apierr.WriteError(w, nil, apierr.Forbidden("client version is no longer supported, please update", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
