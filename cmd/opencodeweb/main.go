package main

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"opencodeweb/internal/app"
	"opencodeweb/pkg/banner"
	"opencodeweb/pkg/config"
	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/shutdown"
)

// build metadata, set via ldflags during release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, upstreamVal, wsVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// flags win over env and config file when explicitly set
	if setFlags["addr"] {
		applyAddrFlag(cfg, addrVal)
	}
	if setFlags["upstream"] {
		cfg.Upstream.URL = upstreamVal
	}
	if setFlags["workspaces"] {
		cfg.Workspace.Root = wsVal
	}

	logger.InitWithLevel(cfg.Logging.Level)

	var srcs []string
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := config.Load(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}

	verStr := version
	if commit != "none" {
		verStr += " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr += " @ " + buildDate
	}
	banner.Print(cfg, strings.Join(srcs, ", "), verStr)

	a, err := app.New(cfg, verStr)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
	logger.Info("stopped")
}

// applyAddrFlag splits a host:port flag value into the config fields.
func applyAddrFlag(cfg *config.Config, addr string) {
	host, port, ok := strings.Cut(addr, ":")
	if !ok {
		cfg.Server.Address = addr
		return
	}
	cfg.Server.Address = host
	if p, err := strconv.Atoi(port); err == nil && p > 0 {
		cfg.Server.Port = p
	}
}
