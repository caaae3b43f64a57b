package auth

import (
	"net"
	"net/http"
	"strings"
)

// EdgeConfig holds the edge middleware settings: CORS origins and the
// per-caller rate limit.
type EdgeConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
}

// UserID extracts the caller identity from request headers. The gateway
// trusts the fronting layer to set x-user-id; x-user is accepted as a legacy
// alias. An empty result means the caller is anonymous.
func UserID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("x-user-id")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get("x-user"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
