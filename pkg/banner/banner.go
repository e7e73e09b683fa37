package banner

import (
	"fmt"

	"chatledger/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██╗     ███████╗██████╗  ██████╗ ███████╗██████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██║     ██╔════╝██╔══██╗██╔════╝ ██╔════╝██╔══██╗
██║     ███████║███████║   ██║   ██║     █████╗  ██║  ██║██║  ███╗█████╗  ██████╔╝
██║     ██╔══██║██╔══██║   ██║   ██║     ██╔══╝  ██║  ██║██║   ██║██╔══╝  ██╔══██╗
╚██████╗██║  ██║██║  ██║   ██║   ███████╗███████╗██████╔╝╚██████╔╝███████╗██║  ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚══════╝╚══════╝╚═════╝  ╚═════╝ ╚══════╝╚═╝  ╚═╝
`

// Print writes the startup banner with the effective runtime settings.
func Print(cfg *config.Config, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", cfg.Addr())
	fmt.Printf("Journal:  %s\n", cfg.Storage.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if cfg.Maintenance.Enabled {
		fmt.Printf("Sweep:    cron=%s purge_deleted_after=%s\n", cfg.Maintenance.Cron, cfg.PurgeDeletedAfterDuration())
	} else {
		fmt.Println("Sweep:    disabled")
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /healthz                      - liveness")
	fmt.Println("GET  /readyz                       - journal readiness")
	fmt.Println("GET  /metrics                      - Prometheus metrics")
	fmt.Println("GET  /v1/stats                     - per-chat ledger summaries")
	fmt.Println("GET  /v1/chats/{id}/events?from=N  - inspect a chat's event sequence")
	fmt.Println("\n== Logs =======================================================")
}
