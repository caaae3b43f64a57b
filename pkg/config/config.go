package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway configuration, loadable from a YAML file with
// environment overrides applied on top. Flags win over env, env over file.
type Config struct {
	Server struct {
		Address     string `yaml:"address"`
		Port        int    `yaml:"port"`
		OpsAddress  string `yaml:"ops_address"`
		MountPrefix string `yaml:"mount_prefix"`
		TLS         struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Upstream struct {
		URL string `yaml:"url"`
	} `yaml:"upstream"`
	Workspace struct {
		Root string `yaml:"root"`
	} `yaml:"workspace"`
	Journal struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"journal"`
	Security struct {
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Retention struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
		Idle    string `yaml:"idle"`
	} `yaml:"retention"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Addr returns host:port for the public HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Prefix returns the mount prefix for the public REST surface.
func (c *Config) Prefix() string {
	p := strings.TrimRight(c.Server.MountPrefix, "/")
	if p == "" {
		p = "/api"
	}
	return p
}

// UpstreamURL returns the agent backend base URL.
func (c *Config) UpstreamURL() string {
	if c.Upstream.URL == "" {
		return "http://127.0.0.1:8081"
	}
	return strings.TrimRight(c.Upstream.URL, "/")
}

// WorkspaceRoot returns the root directory for per-user workspaces.
func (c *Config) WorkspaceRoot() string {
	if c.Workspace.Root == "" {
		return "./workspaces"
	}
	return c.Workspace.Root
}

// RetentionIdle parses the configured idle period, defaulting to 30 days.
func (c *Config) RetentionIdle() time.Duration {
	if c.Retention.Idle == "" {
		return 30 * 24 * time.Hour
	}
	d, err := time.ParseDuration(c.Retention.Idle)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr, upstream, workspaces, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	upstreamPtr := flag.String("upstream", "http://127.0.0.1:8081", "agent backend base URL")
	wsPtr := flag.String("workspaces", "./workspaces", "root directory for per-user workspaces")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *upstreamPtr, *wsPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("OPENCODEWEB_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("OPENCODEWEB_OPS_ADDR"); v != "" {
		envUsed = true
		cfg.Server.OpsAddress = v
	}
	if v := os.Getenv("OPENCODEWEB_MOUNT_PREFIX"); v != "" {
		envUsed = true
		cfg.Server.MountPrefix = v
	}
	if v := os.Getenv("OPENCODEWEB_UPSTREAM_URL"); v != "" {
		envUsed = true
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("OPENCODEWEB_WORKSPACE_ROOT"); v != "" {
		envUsed = true
		cfg.Workspace.Root = v
	}
	if v := os.Getenv("OPENCODEWEB_JOURNAL_PATH"); v != "" {
		envUsed = true
		cfg.Journal.Enabled = true
		cfg.Journal.Path = v
	}
	if v := os.Getenv("OPENCODEWEB_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("OPENCODEWEB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("OPENCODEWEB_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("OPENCODEWEB_RETENTION_CRON"); v != "" {
		envUsed = true
		cfg.Retention.Enabled = true
		cfg.Retention.Cron = v
	}
	if v := os.Getenv("OPENCODEWEB_RETENTION_IDLE"); v != "" {
		envUsed = true
		cfg.Retention.Idle = v
	}
	if v := os.Getenv("OPENCODEWEB_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	if c := os.Getenv("OPENCODEWEB_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("OPENCODEWEB_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}
	return envUsed
}

// LoadEffective loads config from the given path (file) and applies
// environment overrides. A missing file is not an error; env and defaults
// still apply.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}

// ResolveConfigPath decides the config file path using the flag-provided value
// and the environment variable `OPENCODEWEB_CONFIG` when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("OPENCODEWEB_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
