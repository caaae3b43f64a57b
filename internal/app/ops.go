package app

import (
	"net/http"
	"runtime"
	"time"

	"github.com/valyala/fasthttp"

	"opencodeweb/pkg/httpx"
	"opencodeweb/pkg/journal"
	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/telemetry"
)

// startOps serves the ops probes on a separate fasthttp listener when
// configured, so deployment checks stay responsive independently of the
// public server. Returns a stop func; a no-op when no ops address is set.
func (a *App) startOps() func() {
	addr := a.cfg.Server.OpsAddress
	if addr == "" {
		return func() {}
	}

	srv := &fasthttp.Server{
		Handler:            httpx.FastHTTPAdapter(a.opsHandler),
		Name:               "opencodeweb-ops",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	go func() {
		logger.Info("ops_listening", "addr", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			logger.Error("ops_listener_failed", "addr", addr, "error", err)
		}
	}()
	return func() {
		if err := srv.Shutdown(); err != nil {
			logger.Warn("ops_shutdown_failed", "error", err)
		}
	}
}

func (a *App) opsHandler(w httpx.ResponseWriter, r *httpx.Request) {
	switch r.Path {
	case "/health", "/healthz":
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": a.version})
	case "/statusz":
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"version":         a.version,
			"goroutines":      runtime.NumGoroutine(),
			"journal_ready":   journal.Ready(),
			"upstream":        a.cfg.UpstreamURL(),
			"workspace_root":  a.cfg.WorkspaceRoot(),
			"mount_prefix":    a.cfg.Prefix(),
			"active_streams":  telemetry.ActiveStreams(),
			"proxy_errors":    telemetry.ProxyErrors(),
			"journal_appends": telemetry.JournalAppends(),
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
