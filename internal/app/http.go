package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"opencodeweb/pkg/auth"
	"opencodeweb/pkg/httpx"
	"opencodeweb/pkg/journal"
	"opencodeweb/pkg/telemetry"
)

// buildHandler assembles the public HTTP handler: the ops probes, metrics
// and the gateway surface under the mount prefix, wrapped in the edge and
// telemetry middlewares. The ops handler is shared with the fasthttp
// listener; here it is mounted through the net/http adapter.
func (a *App) buildHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.Handle("/statusz", httpx.NetHTTPAdapter(a.opsHandler)).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)
	a.gw.Register(r, a.cfg.Prefix())

	edge := auth.EdgeMiddleware(auth.EdgeConfig{
		AllowedOrigins: append([]string{}, a.cfg.Security.CORS.AllowedOrigins...),
		RPS:            a.cfg.Security.RateLimit.RPS,
		Burst:          a.cfg.Security.RateLimit.Burst,
	})
	return telemetry.Middleware(edge(r))
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{\"status\":\"ok\"}"))
}

// readyzHandler reports not-ready while the journal is configured but not
// yet open; everything else the gateway needs is stateless.
func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.cfg.Journal.Enabled && !journal.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("{\"status\":\"not ready\"}"))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{\"status\":\"ok\",\"version\":\"" + ver + "\"}"))
}

// startHTTP starts the public server in a goroutine and returns a channel
// carrying any fatal listener error.
func (a *App) startHTTP() <-chan error {
	a.srv = &http.Server{Addr: a.cfg.Addr(), Handler: a.buildHandler()}

	errCh := make(chan error, 1)
	go func() {
		cert := a.cfg.Server.TLS.CertFile
		key := a.cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.ListenAndServe()
		}
	}()
	return errCh
}
