// Package app wires the gateway components together and owns the process
// lifecycle: workspace manager, journal, proxy, retention scheduler and the
// public and ops HTTP listeners.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"opencodeweb/internal/retention"
	"opencodeweb/pkg/config"
	"opencodeweb/pkg/gateway"
	"opencodeweb/pkg/journal"
	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/workspace"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	version string

	ws *workspace.Manager
	gw *gateway.Gateway

	srv *http.Server
}

// New initializes everything that does not need a running context: the
// workspace root, the journal database and the gateway itself. Call Run to
// start the listeners and block until shutdown.
func New(cfg *config.Config, version string) (*App, error) {
	ws, err := workspace.NewManager(cfg.WorkspaceRoot())
	if err != nil {
		return nil, fmt.Errorf("init workspace root %s: %w", cfg.WorkspaceRoot(), err)
	}

	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = "./journal"
		}
		if err := journal.Open(path); err != nil {
			return nil, fmt.Errorf("open journal at %s: %w", path, err)
		}
	}

	gw, err := gateway.New(cfg.UpstreamURL(), ws)
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, version: version, ws: ws, gw: gw}, nil
}

// Run starts the retention scheduler, the ops listener and the public HTTP
// server, then blocks until ctx is cancelled or a listener fails.
func (a *App) Run(ctx context.Context) error {
	stopRetention, err := retention.Start(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer stopRetention()

	stopOps := a.startOps()
	defer stopOps()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		logger.Info("shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http_shutdown_failed", "error", err)
		}
		if err := journal.Close(); err != nil {
			logger.Warn("journal_close_failed", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
