// Package maintenance runs the periodic ledger sweep: overdue polls are
// closed and the retained bodies of long-deleted messages are excised, chat
// by chat, paced by a rate limiter so a large journal doesn't monopolise the
// registry lock.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"golang.org/x/time/rate"

	"chatledger/pkg/config"
	"chatledger/pkg/logger"
	"chatledger/pkg/registry"
	"chatledger/pkg/types"
)

// Start starts the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config, reg *registry.Registry) (context.CancelFunc, error) {
	if !cfg.Maintenance.Enabled {
		logger.Info("maintenance_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Maintenance.Cron
	if cronExpr == "" {
		cronExpr = "*/10 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("maintenance_invalid_cron", "cron", cfg.Maintenance.Cron)
		return nil, fmt.Errorf("invalid maintenance cron expression: %s", cfg.Maintenance.Cron)
	}

	logger.Info("maintenance_enabled", "cron", cronExpr, "purge_deleted_after", cfg.PurgeDeletedAfterDuration())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, reg, cronExpr)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, cfg *config.Config, reg *registry.Registry, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("maintenance_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("maintenance_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(ctx, cfg, reg); err != nil {
				logger.Error("maintenance_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("maintenance_scheduler_stopping")
			return
		}
	}
}

// RunOnce sweeps every loaded chat once. Exported so admin triggers and tests
// can invoke a run on demand.
func RunOnce(ctx context.Context, cfg *config.Config, reg *registry.Registry) error {
	perSec := cfg.Maintenance.RatePerSec
	if perSec <= 0 {
		perSec = 20
	}
	limiter := rate.NewLimiter(rate.Limit(perSec), 1)

	now := types.TimestampMillis(time.Now().UnixMilli())
	cutoff := types.TimestampMillis(time.Now().Add(-cfg.PurgeDeletedAfterDuration()).UnixMilli())

	var pollsEnded, purged int
	started := time.Now()
	for _, chat := range reg.ChatIDs() {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		polls, p, err := reg.SweepChat(chat, now, cutoff)
		if err != nil {
			return fmt.Errorf("sweep chat %s: %w", chat, err)
		}
		pollsEnded += polls
		purged += p
	}
	logger.Info("maintenance_run_complete", "polls_ended", pollsEnded, "purged", purged, "duration", time.Since(started).String())
	return nil
}
