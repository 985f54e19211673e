// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/olegiv/ecdsites/internal/version"
)

// Health check states.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// minFreeDisk is the free space below which the uploads check degrades.
const minFreeDisk = 100 << 20

// HealthHandler handles health check requests.
type HealthHandler struct {
	db         *sql.DB
	uploadsDir string
	startTime  time.Time
	timeout    time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, uploadsDir string) *HealthHandler {
	return &HealthHandler{
		db:         db,
		uploadsDir: uploadsDir,
		startTime:  time.Now(),
		timeout:    2 * time.Second,
	}
}

// HealthStatus is the /health response.
type HealthStatus struct {
	Status  string           `json:"status"`
	Uptime  string           `json:"uptime"`
	Version string           `json:"version"`
	Checks  map[string]Check `json:"checks"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health. A failing database answers 503; low disk
// space only degrades the status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())
	diskCheck := h.checkDiskSpace()

	status := statusHealthy
	code := http.StatusOK
	switch {
	case dbCheck.Status != statusHealthy:
		status = statusUnhealthy
		code = http.StatusServiceUnavailable
	case diskCheck.Status != statusHealthy:
		status = statusDegraded
	}

	writeJSON(w, code, HealthStatus{
		Status:  status,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Version: version.Short(),
		Checks: map[string]Check{
			"database": dbCheck,
			"uploads":  diskCheck,
		},
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start).Round(time.Microsecond).String()
	if err != nil {
		return Check{Status: statusUnhealthy, Message: "database unreachable", Latency: latency}
	}
	return Check{Status: statusHealthy, Latency: latency}
}

func (h *HealthHandler) checkDiskSpace() Check {
	if _, err := os.Stat(h.uploadsDir); errors.Is(err, fs.ErrNotExist) {
		return Check{Status: statusHealthy, Message: "uploads directory not created yet"}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.uploadsDir, &stat); err != nil {
		return Check{Status: statusDegraded, Message: "disk space unknown"}
	}

	available := stat.Bavail * uint64(stat.Bsize)
	if available < minFreeDisk {
		return Check{Status: statusDegraded, Message: "low disk space: " + formatBytes(available)}
	}
	return Check{Status: statusHealthy, Message: formatBytes(available) + " free"}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
