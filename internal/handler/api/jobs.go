// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ecdsites/internal/scheduler"
)

// JobManager is the subset of scheduler.Registry the jobs endpoints use.
type JobManager interface {
	List() []scheduler.JobInfo
	TriggerNow(name string) error
	UpdateSchedule(name, schedule string) error
	ResetSchedule(name string) error
}

// JobResponse represents a maintenance job in API responses.
type JobResponse struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Schedule        string     `json:"schedule"`
	DefaultSchedule string     `json:"default_schedule"`
	IsOverridden    bool       `json:"is_overridden"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	NextRun         *time.Time `json:"next_run,omitempty"`
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

func jobToResponse(j scheduler.JobInfo) JobResponse {
	resp := JobResponse{
		Name:            j.Name,
		Description:     j.Description,
		Schedule:        j.Schedule,
		DefaultSchedule: j.DefaultSchedule,
		IsOverridden:    j.IsOverridden,
		LastError:       j.LastError,
	}
	if !j.LastRun.IsZero() {
		resp.LastRun = &j.LastRun
	}
	if !j.NextRun.IsZero() {
		resp.NextRun = &j.NextRun
	}
	return resp
}

// ListJobs handles GET /api/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := h.jobs.List()
	resp := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, jobToResponse(j))
	}
	writeData(w, http.StatusOK, "jobs", resp)
}

// RunJob handles POST /api/jobs/{name}/run. The job runs synchronously and
// its failure is reported in the response, not as a server error.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.jobs.TriggerNow(name)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		WriteNotFound(w, "Job not found")
		return
	}
	h.writeJob(w, http.StatusOK, name)
}

// UpdateJobSchedule handles PUT /api/jobs/{name}/schedule.
func (h *Handler) UpdateJobSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.jobs.UpdateSchedule(name, req.Schedule); err != nil {
		h.writeJobError(w, err)
		return
	}
	h.writeJob(w, http.StatusOK, name)
}

// ResetJobSchedule handles DELETE /api/jobs/{name}/schedule.
func (h *Handler) ResetJobSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.ResetSchedule(name); err != nil {
		h.writeJobError(w, err)
		return
	}
	h.writeJob(w, http.StatusOK, name)
}

func (h *Handler) writeJob(w http.ResponseWriter, status int, name string) {
	for _, j := range h.jobs.List() {
		if j.Name == name {
			writeData(w, status, "job", jobToResponse(j))
			return
		}
	}
	WriteNotFound(w, "Job not found")
}

func (h *Handler) writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		WriteNotFound(w, "Job not found")
	case errors.Is(err, scheduler.ErrInvalidSchedule):
		WriteValidationError(w, map[string]string{"schedule": "must be a five-field cron expression or descriptor"})
	default:
		h.logger.Error("updating job schedule failed", "error", err)
		WriteInternalError(w)
	}
}
