// Package gateway multiplexes per-user requests onto a single upstream
// OpenCode-compatible agent backend. Every request is bound to the caller's
// isolated workspace directory before it is forwarded: the directory query
// parameter is forced server-side, so a client can never address another
// user's workspace.
package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"opencodeweb/pkg/auth"
	"opencodeweb/pkg/journal"
	"opencodeweb/pkg/utils"
	"opencodeweb/pkg/workspace"
)

// Gateway is the directory-binding proxy in front of the agent backend.
type Gateway struct {
	upstream *url.URL
	ws       *workspace.Manager
	prefix   string

	// client forwards command requests; streamClient serves long-lived
	// event-stream relays and must not buffer or time out mid-stream.
	client       *http.Client
	streamClient *http.Client
}

// New creates a gateway forwarding to upstreamURL with workspaces resolved
// through ws.
func New(upstreamURL string, ws *workspace.Manager) (*Gateway, error) {
	u, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream url: %s", upstreamURL)
	}
	dial := &net.Dialer{Timeout: 10 * time.Second}
	return &Gateway{
		upstream: u,
		ws:       ws,
		client: &http.Client{
			// no overall timeout: prompt commands can legitimately take
			// minutes; connection setup is still bounded by the dialer
			Transport: &http.Transport{DialContext: dial.DialContext},
		},
		streamClient: &http.Client{
			Transport: &http.Transport{
				DialContext: dial.DialContext,
				// compression would buffer the event stream
				DisableCompression: true,
			},
		},
	}, nil
}

// Register mounts the public surface under prefix on r.
func (g *Gateway) Register(r *mux.Router, prefix string) {
	g.prefix = prefix
	sub := r.PathPrefix(prefix).Subrouter()
	sub.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	sub.HandleFunc("/event", g.handleStream).Methods(http.MethodGet)
	sub.HandleFunc("/sse", g.handleStream).Methods(http.MethodGet)
	sub.HandleFunc("/global/event", g.handleStream).Methods(http.MethodGet)
	sub.HandleFunc("/admin/journal", g.handleJournal).Methods(http.MethodGet)
	sub.PathPrefix("/sessions").HandlerFunc(g.handleSessions)
	sub.PathPrefix("/session").HandlerFunc(g.handleSessions)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleJournal returns the audit journal for a user, newest last. The user
// defaults to the caller's own identity.
func (g *Gateway) handleJournal(w http.ResponseWriter, r *http.Request) {
	if !journal.Ready() {
		utils.JSONError(w, http.StatusNotFound, "journal disabled")
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		user = auth.UserID(r)
	}
	if user == "" {
		user = workspace.AnonymousID
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := journal.List(user, limit)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"user": user, "entries": entries})
}
