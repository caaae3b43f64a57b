package auth

import (
	"net/http"
	"strings"

	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/utils"
	"opencodeweb/pkg/workspace"
)

// EdgeMiddleware applies CORS, per-caller rate limiting and request logging.
// Callers are identified by the x-user-id header; anonymous callers are
// limited per remote IP so one unidentified client cannot starve the rest.
func EdgeMiddleware(cfg EdgeConfig) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			// cors preflight
			origin := r.Header.Get("Origin")
			if allowed, wildcard := originAllowed(origin, cfg.AllowedOrigins); allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,Accept,X-User-ID,X-User")
				// credentials must never pair with a wildcard match: that
				// would grant credentialed access to every origin
				if !wildcard {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// liveness probes bypass rate limiting
			if (r.URL.Path == "/healthz" || r.URL.Path == "/readyz") && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := UserID(r)
			if key == "" {
				key = workspace.AnonymousID + ":" + clientIP(r)
			}
			if !limiters.Allow(key) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "key", key, "path", r.URL.Path)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed reports whether origin may be reflected, and whether the
// match came from a wildcard allowlist entry.
func originAllowed(origin string, allowed []string) (bool, bool) {
	// an empty allowlist means same-origin deployments; no CORS headers
	if origin == "" || len(allowed) == 0 {
		return false, false
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true, false
		}
	}
	for _, a := range allowed {
		if a == "*" {
			return true, true
		}
	}
	return false, false
}
