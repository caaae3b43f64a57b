// Package retention removes idle user workspaces on a cron schedule.
// A workspace is idle when its directory has not been modified for longer
// than the configured idle period.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"

	"opencodeweb/pkg/config"
	"opencodeweb/pkg/logger"
)

// Start launches the retention scheduler when enabled. Returns a cancel func
// for the scheduler goroutine.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Retention.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Retention.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Retention.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Retention.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "idle", cfg.RetentionIdle().String(), "root", cfg.WorkspaceRoot())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg.WorkspaceRoot(), cfg.RetentionIdle(), cronExpr)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it,
// then sweeps idle workspaces.
func runScheduler(ctx context.Context, root string, idle time.Duration, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if n, err := Sweep(root, idle); err != nil {
				logger.Error("retention_run_error", "error", err)
			} else if n > 0 {
				logger.Info("retention_swept", "removed", n)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// Sweep removes workspace directories under root idle for longer than the
// given period and returns how many were removed.
func Sweep(root string, idle time.Duration) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-idle)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("retention_remove_failed", "path", path, "error", err)
			continue
		}
		logger.Info("workspace_removed", "path", path, "idle_since", info.ModTime().UTC().Format(time.RFC3339))
		removed++
	}
	return removed, nil
}
