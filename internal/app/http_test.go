package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"opencodeweb/pkg/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.Workspace.Root = t.TempDir()
	a, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestPublicHandlerServesProbes(t *testing.T) {
	h := newTestApp(t).buildHandler()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d, want 200", path, rec.Code)
		}
	}
}

func TestPublicHandlerServesStatusz(t *testing.T) {
	h := newTestApp(t).buildHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statusz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["version"] != "test" {
		t.Fatalf("version = %v", body["version"])
	}
	if _, ok := body["goroutines"]; !ok {
		t.Fatalf("goroutines missing: %v", body)
	}
}
