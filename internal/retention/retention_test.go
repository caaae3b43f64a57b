package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"opencodeweb/pkg/config"
)

func TestSweepRemovesOnlyIdleDirs(t *testing.T) {
	root := t.TempDir()

	idleDir := filepath.Join(root, "alice")
	if err := os.Mkdir(idleDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(idleDir, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	freshDir := filepath.Join(root, "bob")
	if err := os.Mkdir(freshDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// stray files at the root are left alone
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	removed, err := Sweep(root, 24*time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(idleDir); !os.IsNotExist(err) {
		t.Fatalf("idle workspace still present")
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Fatalf("fresh workspace removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "notes.txt")); err != nil {
		t.Fatalf("root file removed: %v", err)
	}
}

func TestSweepMissingRoot(t *testing.T) {
	removed, err := Sweep(filepath.Join(t.TempDir(), "absent"), time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestStartDisabledIsNoOp(t *testing.T) {
	cancel, err := Start(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
}

func TestStartRejectsInvalidCron(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retention.Enabled = true
	cfg.Retention.Cron = "not a cron"
	if _, err := Start(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for invalid cron")
	}
}
