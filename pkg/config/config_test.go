package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("Addr = %q", got)
	}
	if got := cfg.Prefix(); got != "/api" {
		t.Fatalf("Prefix = %q", got)
	}
	if got := cfg.UpstreamURL(); got != "http://127.0.0.1:8081" {
		t.Fatalf("UpstreamURL = %q", got)
	}
	if got := cfg.WorkspaceRoot(); got != "./workspaces" {
		t.Fatalf("WorkspaceRoot = %q", got)
	}
	if got := cfg.RetentionIdle(); got != 30*24*time.Hour {
		t.Fatalf("RetentionIdle = %v", got)
	}
}

func TestPrefixTrimsTrailingSlash(t *testing.T) {
	cfg := &Config{}
	cfg.Server.MountPrefix = "/gateway/"
	if got := cfg.Prefix(); got != "/gateway" {
		t.Fatalf("Prefix = %q, want /gateway", got)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: 127.0.0.1
  port: 9090
  mount_prefix: /proxy
upstream:
  url: http://agent:4096
workspace:
  root: /var/lib/workspaces
journal:
  enabled: true
  path: /var/lib/journal
security:
  cors:
    allowed_origins: ["http://localhost:5173"]
  rate_limit:
    rps: 10
    burst: 20
retention:
  enabled: true
  cron: "0 3 * * *"
  idle: 168h
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
	if cfg.Prefix() != "/proxy" {
		t.Fatalf("Prefix = %q", cfg.Prefix())
	}
	if cfg.UpstreamURL() != "http://agent:4096" {
		t.Fatalf("UpstreamURL = %q", cfg.UpstreamURL())
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != "/var/lib/journal" {
		t.Fatalf("journal config = %+v", cfg.Journal)
	}
	if len(cfg.Security.CORS.AllowedOrigins) != 1 {
		t.Fatalf("origins = %v", cfg.Security.CORS.AllowedOrigins)
	}
	if cfg.RetentionIdle() != 168*time.Hour {
		t.Fatalf("RetentionIdle = %v", cfg.RetentionIdle())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENCODEWEB_ADDR", "10.0.0.1:7070")
	t.Setenv("OPENCODEWEB_UPSTREAM_URL", "http://backend:5000")
	t.Setenv("OPENCODEWEB_WORKSPACE_ROOT", "/srv/ws")
	t.Setenv("OPENCODEWEB_JOURNAL_PATH", "/srv/journal")
	t.Setenv("OPENCODEWEB_RATE_RPS", "5")
	t.Setenv("OPENCODEWEB_RATE_BURST", "9")
	t.Setenv("OPENCODEWEB_RETENTION_CRON", "30 1 * * *")

	cfg := &Config{}
	if !LoadEnvOverrides(cfg) {
		t.Fatalf("env overrides not detected")
	}
	if cfg.Addr() != "10.0.0.1:7070" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
	if cfg.UpstreamURL() != "http://backend:5000" {
		t.Fatalf("UpstreamURL = %q", cfg.UpstreamURL())
	}
	if cfg.WorkspaceRoot() != "/srv/ws" {
		t.Fatalf("WorkspaceRoot = %q", cfg.WorkspaceRoot())
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != "/srv/journal" {
		t.Fatalf("journal = %+v", cfg.Journal)
	}
	if cfg.Security.RateLimit.RPS != 5 || cfg.Security.RateLimit.Burst != 9 {
		t.Fatalf("rate limit = %+v", cfg.Security.RateLimit)
	}
	if !cfg.Retention.Enabled || cfg.Retention.Cron != "30 1 * * *" {
		t.Fatalf("retention = %+v", cfg.Retention)
	}
}

func TestLoadEffectiveMissingFileUsesDefaults(t *testing.T) {
	cfg, _, err := LoadEffective(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadEffective: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("/from/flag", true); got != "/from/flag" {
		t.Fatalf("flag path ignored: %q", got)
	}
	t.Setenv("OPENCODEWEB_CONFIG", "/from/env")
	if got := ResolveConfigPath("/default", false); got != "/from/env" {
		t.Fatalf("env path ignored: %q", got)
	}
}
