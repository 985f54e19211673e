// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrJobNotFound is returned for operations on an unregistered job.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidSchedule is returned when a cron expression does not parse.
	ErrInvalidSchedule = errors.New("invalid cron expression")
)

// specParser accepts standard five-field expressions and descriptors such
// as "@daily" or "@every 10m".
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// registeredJob holds metadata about a registered cron job.
type registeredJob struct {
	job      Job
	schedule string // effective schedule
	entryID  cron.EntryID
	lastErr  error
	lastRun  time.Time
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string
	Description     string
	DefaultSchedule string
	Schedule        string
	IsOverridden    bool
	LastRun         time.Time
	LastError       string
	NextRun         time.Time
}

// Registry tracks the jobs added to one cron instance.
type Registry struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	mu      sync.RWMutex
	jobs    map[string]*registeredJob
}

func newRegistry(c *cron.Cron, logger *slog.Logger, timeout time.Duration) *Registry {
	return &Registry{
		cron:    c,
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*registeredJob),
	}
}

// Register adds a job under its default schedule. Names must be unique.
func (r *Registry) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if _, err := specParser.Parse(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", job.Schedule, job.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("job already registered: %s", job.Name)
	}

	rj := &registeredJob{job: job, schedule: job.Schedule}
	id, err := r.cron.AddFunc(job.Schedule, func() { _ = r.run(rj) })
	if err != nil {
		return fmt.Errorf("adding job %s: %w", job.Name, err)
	}
	rj.entryID = id
	r.jobs[job.Name] = rj

	r.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

// run executes a job with the registry timeout and records the outcome.
func (r *Registry) run(rj *registeredJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	err := rj.job.Run(ctx)

	r.mu.Lock()
	rj.lastRun = start
	rj.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("scheduled job failed", "name", rj.job.Name, "error", err, "category", "system")
		return err
	}
	r.logger.Debug("scheduled job finished", "name", rj.job.Name, "duration", time.Since(start))
	return nil
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, rj := range r.jobs {
		info := JobInfo{
			Name:            rj.job.Name,
			Description:     rj.job.Description,
			DefaultSchedule: rj.job.Schedule,
			Schedule:        rj.schedule,
			IsOverridden:    rj.schedule != rj.job.Schedule,
			LastRun:         rj.lastRun,
			NextRun:         r.cron.Entry(rj.entryID).Next,
		}
		if rj.lastErr != nil {
			info.LastError = rj.lastErr.Error()
		}
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TriggerNow runs a job immediately on the calling goroutine.
func (r *Registry) TriggerNow(name string) error {
	r.mu.RLock()
	rj, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	r.logger.Info("manually triggering job", "name", name)
	return r.run(rj)
}

// UpdateSchedule moves a job to a new schedule. The old entry is kept when
// the new expression does not parse.
func (r *Registry) UpdateSchedule(name, schedule string) error {
	if _, err := specParser.Parse(schedule); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, schedule, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rj, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	id, err := r.cron.AddFunc(schedule, func() { _ = r.run(rj) })
	if err != nil {
		return fmt.Errorf("applying schedule to %s: %w", name, err)
	}
	r.cron.Remove(rj.entryID)
	rj.entryID = id
	rj.schedule = schedule

	r.logger.Info("updated job schedule", "name", name, "schedule", schedule)
	return nil
}

// ResetSchedule restores a job's default schedule.
func (r *Registry) ResetSchedule(name string) error {
	r.mu.RLock()
	rj, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return r.UpdateSchedule(name, rj.job.Schedule)
}
