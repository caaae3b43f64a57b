package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNetHTTPAdapter(t *testing.T) {
	var got *Request
	h := NetHTTPAdapter(func(w ResponseWriter, r *Request) {
		got = r
		WriteJSON(w, http.StatusAccepted, map[string]string{"path": r.Path})
	})

	req := httptest.NewRequest(http.MethodPost, "/statusz?x=1", strings.NewReader(`{"k":"v"}`))
	req.Header.Set("X-Probe", "yes")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got == nil {
		t.Fatalf("handler not invoked")
	}
	if got.Method != http.MethodPost || got.Path != "/statusz" {
		t.Fatalf("request = %s %s", got.Method, got.Path)
	}
	if got.Header.Get("X-Probe") != "yes" {
		t.Fatalf("headers not carried: %v", got.Header)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["path"] != "/statusz" {
		t.Fatalf("body = %v", body)
	}
}

func TestNetHTTPAdapterImplicitOK(t *testing.T) {
	h := NetHTTPAdapter(func(w ResponseWriter, r *Request) {
		_, _ = w.Write([]byte("hi"))
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hi" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
}
