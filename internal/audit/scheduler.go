package audit

// scheduler.go runs the retention purge for the audit trail. It is long
// running and context-aware; a failed purge is logged and retried on the next
// tick rather than stopping the server.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the purge scheduler.
type RetentionConfig struct {
	RetentionDays int           // Days to keep entries (default: 180)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 180
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler purges entries older than the retention window.
// It runs immediately, then every CheckInterval, until ctx is cancelled.
func StartRetentionScheduler(ctx context.Context, r Recorder, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("audit retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval.String(),
	)

	runPurgeJob(ctx, r, cfg, time.Now())

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit retention scheduler stopped")
			return
		case now := <-ticker.C:
			runPurgeJob(ctx, r, cfg, now)
		}
	}
}

// runPurgeJob performs one purge cycle.
func runPurgeJob(ctx context.Context, r Recorder, cfg RetentionConfig, now time.Time) int64 {
	start := time.Now()
	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)

	purged, err := r.Purge(ctx, cutoff)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return 0
	}
	slog.Info("purged audit entries",
		"entries_purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
