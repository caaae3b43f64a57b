package gateway

import (
	"errors"
	"strings"
)

// ErrNoRoute marks a public path with no upstream equivalent.
var ErrNoRoute = errors.New("route not found")

// routeSessionPath translates the public session path (already stripped of
// the mount prefix and the /sessions or /session segment, and trimmed of
// slashes) into the upstream path scheme. Only the exact shapes below are
// routable; everything else is rejected.
func routeSessionPath(p string) (string, error) {
	var segments []string
	if p != "" {
		segments = strings.Split(p, "/")
	}
	switch {
	case len(segments) == 0:
		return "/session", nil
	case len(segments) == 1:
		return "/session/" + segments[0], nil
	case len(segments) == 2 && segments[1] == "prompt":
		return "/session/" + segments[0] + "/prompt", nil
	case len(segments) == 2 && segments[1] == "message":
		return "/session/" + segments[0] + "/message", nil
	case len(segments) == 3 && segments[1] == "permissions":
		return "/session/" + segments[0] + "/permissions/" + segments[2], nil
	case len(segments) == 3 && segments[1] == "questions":
		return "/session/" + segments[0] + "/questions/" + segments[2], nil
	default:
		return "", ErrNoRoute
	}
}

// stripMount removes the mount prefix and the session mount segment from a
// request path. Both /sessions/... and /session/... normalize identically.
func stripMount(path, prefix string) (string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	switch {
	case strings.HasPrefix(rest, "/sessions"):
		rest = rest[len("/sessions"):]
	case strings.HasPrefix(rest, "/session"):
		rest = rest[len("/session"):]
	default:
		return "", false
	}
	return strings.Trim(rest, "/"), true
}
