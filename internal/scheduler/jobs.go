// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job names.
const (
	JobSyncSweep   = "sync_sweep"
	JobPruneEvents = "prune_events"
	JobGeoIPReload = "geoip_reload"
)

// DefaultEventRetention is how long event log rows are kept.
const DefaultEventRetention = 30 * 24 * time.Hour

// SyncSweeper re-queues partner-sync deliveries whose retry time has come.
type SyncSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// EventPruner deletes event log rows older than a retention period.
type EventPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// GeoIPReloader reopens the GeoIP database when the file changed.
type GeoIPReloader interface {
	Reload() (bool, error)
}

// Maintenance lists the collaborators of the built-in jobs. Nil fields
// leave their job unregistered.
type Maintenance struct {
	Sync           SyncSweeper
	Events         EventPruner
	EventRetention time.Duration
	GeoIP          GeoIPReloader
	Logger         *slog.Logger
}

// RegisterMaintenance adds the built-in jobs to s.
func RegisterMaintenance(s *Scheduler, m Maintenance) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retention := m.EventRetention
	if retention <= 0 {
		retention = DefaultEventRetention
	}

	var jobs []Job
	if m.Sync != nil {
		jobs = append(jobs, Job{
			Name:        JobSyncSweep,
			Description: "Re-queue partner sync deliveries that are due for retry",
			Schedule:    "* * * * *",
			Run: func(ctx context.Context) error {
				n, err := m.Sync.Sweep(ctx)
				if err != nil {
					return fmt.Errorf("sweeping sync deliveries: %w", err)
				}
				if n > 0 {
					logger.Info("re-queued sync deliveries", "count", n, "category", "sync")
				}
				return nil
			},
		})
	}
	if m.Events != nil {
		jobs = append(jobs, Job{
			Name:        JobPruneEvents,
			Description: "Delete event log entries past the retention period",
			Schedule:    "30 3 * * *",
			Run: func(ctx context.Context) error {
				n, err := m.Events.Prune(ctx, retention)
				if err != nil {
					return err
				}
				if n > 0 {
					logger.Info("pruned event log", "deleted", n, "retention", retention)
				}
				return nil
			},
		})
	}
	if m.GeoIP != nil {
		jobs = append(jobs, Job{
			Name:        JobGeoIPReload,
			Description: "Reopen the GeoIP database after it was replaced on disk",
			Schedule:    "@every 1h",
			Run: func(context.Context) error {
				reloaded, err := m.GeoIP.Reload()
				if err != nil {
					return fmt.Errorf("reloading geoip database: %w", err)
				}
				if reloaded {
					logger.Info("geoip database reloaded")
				}
				return nil
			},
		})
	}

	for _, job := range jobs {
		if err := s.Add(job); err != nil {
			return err
		}
	}
	return nil
}
