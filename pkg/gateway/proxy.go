package gateway

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"opencodeweb/pkg/auth"
	"opencodeweb/pkg/journal"
	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/telemetry"
	"opencodeweb/pkg/utils"
	"opencodeweb/pkg/workspace"
)

// clientInfo derives the caller identity from headers and resolves the
// workspace directory bound to every forwarded request.
func (g *Gateway) clientInfo(r *http.Request) (userID, wsPath string, err error) {
	userID = auth.UserID(r)
	if userID == "" {
		userID = workspace.AnonymousID
	}
	wsPath, err = g.ws.Resolve(userID)
	return userID, wsPath, err
}

// bindDirectory rewrites the query string so the directory parameter always
// names the resolved workspace, regardless of what the client supplied. This
// is the isolation guarantee.
func bindDirectory(path, rawQuery, wsPath string) string {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		params = url.Values{}
	}
	params.Set("directory", wsPath)
	return path + "?" + params.Encode()
}

// cloneHeaders copies request headers, dropping hop-specific ones that the
// transport recomputes.
func cloneHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		switch strings.ToLower(k) {
		case "host", "content-length":
			continue
		}
		for _, v := range vv {
			out.Add(k, v)
		}
	}
	return out
}

// handleSessions routes and forwards the /sessions and /session families.
func (g *Gateway) handleSessions(w http.ResponseWriter, r *http.Request) {
	userID, wsPath, err := g.clientInfo(r)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rest, ok := stripMount(r.URL.Path, g.prefix)
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "route not found")
		return
	}
	upstreamPath, err := routeSessionPath(rest)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "route not found")
		return
	}
	target := g.upstream.String() + bindDirectory(upstreamPath, r.URL.RawQuery, wsPath)
	g.proxyCommand(w, r, target, userID, wsPath, upstreamPath)
}

// proxyCommand forwards one request to target and relays the response. Any
// transport failure is a 502; nothing is retried here.
func (g *Gateway) proxyCommand(w http.ResponseWriter, r *http.Request, target, userID, wsPath, route string) {
	headers := cloneHeaders(r.Header)
	headers.Set("x-user-id", userID)
	headers.Set("x-workspace", wsPath)
	headers.Set("x-opencode-directory", wsPath)
	headers.Set("Content-Type", "application/json")

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		// upstream expects a well-formed JSON body on mutating verbs
		if len(bytes.TrimSpace(raw)) == 0 {
			raw = []byte("{}")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header = headers

	logger.Debug("proxy_forward", "method", r.Method, "path", r.URL.Path, "upstream", route, "user", userID)
	resp, err := g.client.Do(req)
	if err != nil {
		telemetry.ProxyError()
		logger.Error("proxy_upstream_failed", "upstream", route, "user", userID, "error", err)
		utils.JSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)

	if isMutating(r.Method) && journal.Ready() {
		if err := journal.Append(journal.Entry{User: userID, Method: r.Method, Route: route, Status: resp.StatusCode}); err != nil {
			logger.Warn("journal_append_failed", "user", userID, "route", route, "error", err)
		}
	}
}

// copyResponseHeaders relays upstream headers, except CORS headers this
// layer already owns.
func copyResponseHeaders(w http.ResponseWriter, resp *http.Response) {
	for k, vv := range resp.Header {
		if strings.HasPrefix(strings.ToLower(k), "access-control-") {
			continue
		}
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
