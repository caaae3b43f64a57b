package banner

import (
	"fmt"

	"opencodeweb/pkg/config"
)

const banner = `
 ██████╗ ██████╗ ███████╗███╗   ██╗ ██████╗ ██████╗ ██████╗ ███████╗    ██╗    ██╗███████╗██████╗
██╔═══██╗██╔══██╗██╔════╝████╗  ██║██╔════╝██╔═══██╗██╔══██╗██╔════╝    ██║    ██║██╔════╝██╔══██╗
██║   ██║██████╔╝█████╗  ██╔██╗ ██║██║     ██║   ██║██║  ██║█████╗      ██║ █╗ ██║█████╗  ██████╔╝
██║   ██║██╔═══╝ ██╔══╝  ██║╚██╗██║██║     ██║   ██║██║  ██║██╔══╝      ██║███╗██║██╔══╝  ██╔══██╗
╚██████╔╝██║     ███████╗██║ ╚████║╚██████╗╚██████╔╝██████╔╝███████╗    ╚███╔███╔╝███████╗██████╔╝
 ╚═════╝ ╚═╝     ╚══════╝╚═╝  ╚═══╝ ╚═════╝ ╚═════╝ ╚═════╝ ╚══════╝     ╚══╝╚══╝ ╚══════╝╚═════╝
`

// Print writes the startup banner with the effective runtime configuration.
func Print(cfg *config.Config, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:     %s\n", cfg.Addr())
	fmt.Printf("Upstream:   %s\n", cfg.UpstreamURL())
	fmt.Printf("Workspaces: %s\n", cfg.WorkspaceRoot())
	fmt.Printf("Mount:      %s\n", cfg.Prefix())
	if version != "" {
		fmt.Printf("Version:    %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	if cfg.Journal.Enabled {
		fmt.Printf("Journal:    enabled (%s)\n", cfg.Journal.Path)
	} else {
		fmt.Println("Journal:    disabled")
	}
	if cfg.Retention.Enabled {
		fmt.Printf("Retention:  enabled (cron=%s idle=%s)\n", cfg.Retention.Cron, cfg.RetentionIdle())
	} else {
		fmt.Println("Retention:  disabled")
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Printf("GET  %s/health - Gateway health\n", cfg.Prefix())
	fmt.Printf("GET  %s/event - Workspace event stream (SSE)\n", cfg.Prefix())
	fmt.Printf("*    %s/sessions/... - Session commands, bound to caller workspace\n", cfg.Prefix())

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -H 'x-user-id: alice' 'http://%s%s/sessions'\n", cfg.Addr(), cfg.Prefix())
	fmt.Printf("curl -N -H 'x-user-id: alice' 'http://%s%s/event'\n", cfg.Addr(), cfg.Prefix())

	fmt.Println("\n== Logs =======================================================")
}
