// Package app wires the ledger server together: journal, registry, sweep
// scheduler, and the ops HTTP endpoint.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chatledger/internal/maintenance"
	"chatledger/pkg/banner"
	"chatledger/pkg/config"
	"chatledger/pkg/logger"
	"chatledger/pkg/registry"
	"chatledger/pkg/store"
	"chatledger/pkg/telemetry"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	version string

	reg *registry.Registry
	srv *http.Server
}

// New opens the journal and replays every persisted chat. It does not start
// the scheduler or the HTTP server; call Run to start those and block until
// shutdown.
func New(cfg *config.Config, version string) (*App, error) {
	if err := store.Open(cfg.Storage.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open journal at %s: %w", cfg.Storage.DBPath, err)
	}

	reg := registry.New()
	if err := reg.Load(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load chats: %w", err)
	}

	return &App{cfg: cfg, version: version, reg: reg}, nil
}

// Registry exposes the loaded chat registry.
func (a *App) Registry() *registry.Registry { return a.reg }

// Run starts the sweep scheduler and the HTTP server, and blocks until ctx
// is canceled or a fatal server error occurs. The journal is closed on the
// way out.
func (a *App) Run(ctx context.Context) error {
	banner.Print(a.cfg, a.version)

	stopSweep, err := maintenance.Start(ctx, a.cfg, a.reg)
	if err != nil {
		return err
	}
	defer stopSweep()

	go a.trackJournalSize(ctx)

	errCh := a.startHTTP()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("journal_close_error", "error", err)
	}
	return runErr
}

// trackJournalSize refreshes the journal size gauge periodically.
func (a *App) trackJournalSize(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		telemetry.JournalBytes.Set(float64(store.JournalSizeBytes()))
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
