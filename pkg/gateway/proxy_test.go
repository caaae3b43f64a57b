package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"opencodeweb/pkg/workspace"
)

type upstreamCapture struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   string
}

func newTestGateway(t *testing.T, upstreamURL string) (*Gateway, *mux.Router, *workspace.Manager) {
	t.Helper()
	ws, err := workspace.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	g, err := New(upstreamURL, ws)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := mux.NewRouter()
	g.Register(r, "/api")
	return g, r, ws
}

func captureUpstream(t *testing.T, respond func(w http.ResponseWriter)) (*httptest.Server, *upstreamCapture) {
	t.Helper()
	seen := &upstreamCapture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.method = r.Method
		seen.path = r.URL.Path
		seen.query = r.URL.Query()
		seen.header = r.Header.Clone()
		seen.body = string(body)
		if respond != nil {
			respond(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestProxyForcesDirectoryParam(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, ws := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?directory=/etc/other-user", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want, err := ws.Resolve("alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := seen.query["directory"]
	if len(got) != 1 || got[0] != want {
		t.Fatalf("upstream directory = %v, want [%s]", got, want)
	}
}

func TestProxyInjectsIdentityHeaders(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, ws := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("x-user-id", "bob")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	wsPath, _ := ws.Resolve("bob")
	if got := seen.header.Get("x-user-id"); got != "bob" {
		t.Fatalf("x-user-id = %q, want bob", got)
	}
	if got := seen.header.Get("x-workspace"); got != wsPath {
		t.Fatalf("x-workspace = %q, want %q", got, wsPath)
	}
	if got := seen.header.Get("x-opencode-directory"); got != wsPath {
		t.Fatalf("x-opencode-directory = %q, want %q", got, wsPath)
	}
}

func TestProxyAnonymousFallback(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := seen.header.Get("x-user-id"); got != workspace.AnonymousID {
		t.Fatalf("x-user-id = %q, want %q", got, workspace.AnonymousID)
	}
}

func TestProxyRewritesEmptyMutatingBody(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(""))
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen.body != "{}" {
		t.Fatalf("upstream body = %q, want {}", seen.body)
	}
}

func TestProxyPreservesNonEmptyBody(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/abc/prompt", strings.NewReader(`{"parts":[]}`))
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen.body != `{"parts":[]}` {
		t.Fatalf("upstream body = %q", seen.body)
	}
	if seen.path != "/session/abc/prompt" {
		t.Fatalf("upstream path = %q, want /session/abc/prompt", seen.path)
	}
}

func TestProxyRoutesPermissionReply(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, ws := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/abc/permissions/42?x=1", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen.method != http.MethodDelete {
		t.Fatalf("upstream method = %q, want DELETE", seen.method)
	}
	if seen.path != "/session/abc/permissions/42" {
		t.Fatalf("upstream path = %q, want /session/abc/permissions/42", seen.path)
	}
	if got := seen.query["x"]; len(got) != 1 || got[0] != "1" {
		t.Fatalf("query x = %v, want [1]", got)
	}
	wsPath, _ := ws.Resolve("alice")
	if got := seen.query["directory"]; len(got) != 1 || got[0] != wsPath {
		t.Fatalf("query directory = %v, want [%s]", got, wsPath)
	}
}

func TestProxyRejectsUnroutablePath(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc/unknown", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if seen.method != "" {
		t.Fatalf("unroutable path reached upstream: %s %s", seen.method, seen.path)
	}
}

func TestProxyUpstreamUnreachableIs502(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
}

func TestProxyStripsUpstreamCORSHeaders(t *testing.T) {
	srv, _ := captureUpstream(t, func(w http.ResponseWriter) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		w.Header().Set("X-Upstream-Marker", "kept")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	})
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("upstream CORS header leaked: %q", got)
	}
	if got := rec.Header().Get("X-Upstream-Marker"); got != "kept" {
		t.Fatalf("X-Upstream-Marker = %q, want kept", got)
	}
}

func TestProxyIsolationBetweenUsers(t *testing.T) {
	srv, seen := captureUpstream(t, nil)
	_, r, ws := newTestGateway(t, srv.URL)

	other, _ := ws.Resolve("bob")

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?directory="+other, nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	alice, _ := ws.Resolve("alice")
	got := seen.query["directory"]
	if len(got) != 1 || got[0] != alice {
		t.Fatalf("directory = %v, want alice workspace %s", got, alice)
	}
	if got[0] == other {
		t.Fatalf("request reached another user's workspace")
	}
}
