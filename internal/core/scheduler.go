package core

// scheduler.go runs periodic maintenance:
//  1. Drop form sessions that have been idle longer than their TTL
//  2. Purge audit entries older than the retention window
//
// Failures are logged and never stop the loop.

import (
	"context"
	"log/slog"
	"time"
)

// MaintenanceConfig controls StartMaintenance.
type MaintenanceConfig struct {
	AuditRetentionDays int           // 0 disables audit purging
	SweepInterval      time.Duration // default: 5m
	PurgeInterval      time.Duration // default: 1h, never below SweepInterval
}

// StartMaintenance runs one maintenance pass immediately, then every
// SweepInterval until ctx is cancelled.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = time.Hour
	}

	slog.Info("maintenance scheduler started",
		"sweep_interval", cfg.SweepInterval,
		"purge_interval", cfg.PurgeInterval,
		"audit_retention_days", cfg.AuditRetentionDays,
	)

	s.runMaintenance(ctx, cfg, true)
	lastPurge := time.Now()

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			purge := time.Since(lastPurge) >= cfg.PurgeInterval
			s.runMaintenance(ctx, cfg, purge)
			if purge {
				lastPurge = time.Now()
			}
		}
	}
}

func (s *Service) runMaintenance(ctx context.Context, cfg MaintenanceConfig, purge bool) {
	start := time.Now()

	if n := s.forms.Sweep(); n > 0 {
		slog.Info("expired form sessions removed", "count", n)
	}

	if purge && cfg.AuditRetentionDays > 0 {
		retention := time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour
		purged, err := s.PurgeAudit(ctx, retention)
		if err != nil {
			slog.Error("audit purge failed", "error", err)
		} else if purged > 0 {
			slog.Info("purged audit log entries", "entries_purged", purged)
		}
	}

	slog.Debug("maintenance pass completed", "duration_ms", time.Since(start).Milliseconds())
}
