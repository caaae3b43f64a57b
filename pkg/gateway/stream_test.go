package gateway

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestStreamRelaysBytes(t *testing.T) {
	frames := "data: {\"type\":\"session.created\",\"properties\":{\"id\":\"s1\"}}\n\n" +
		"data: {\"type\":\"message.updated\",\"properties\":{}}\n\n"
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(frames))
	}))
	t.Cleanup(srv.Close)
	_, r, ws := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/event?directory=evil&foo=bar", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q, want no-cache", cc)
	}
	if rec.Body.String() != frames {
		t.Fatalf("relayed body = %q, want %q", rec.Body.String(), frames)
	}
	if gotPath != "/event" {
		t.Fatalf("upstream path = %q, want /event", gotPath)
	}
	// only the bound directory goes upstream; client params are dropped
	wsPath, _ := ws.Resolve("alice")
	if got := gotQuery.Get("directory"); got != wsPath {
		t.Fatalf("upstream directory = %q, want %q", got, wsPath)
	}
	if gotQuery.Get("foo") != "" {
		t.Fatalf("client query param forwarded: %v", gotQuery)
	}
}

func TestStreamGlobalScope(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	_, r, _ := newTestGateway(t, srv.URL)

	for _, target := range []string{"/api/global/event", "/api/event?scope=global"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("x-user-id", "alice")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if gotPath != "/global/event" {
			t.Fatalf("target %s: upstream path = %q, want /global/event", target, gotPath)
		}
	}
}

func TestStreamRelaysUpstreamFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend starting", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/event", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Content-Type") == "text/event-stream" {
		t.Fatalf("failed upstream must not open a stream")
	}
}

func TestStreamUpstreamUnreachableIs502(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	_, r, _ := newTestGateway(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/event", nil)
	req.Header.Set("x-user-id", "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
