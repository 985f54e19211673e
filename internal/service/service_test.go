// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/testutil"
)

// recordingInvalidator captures invalidations.
type recordingInvalidator struct {
	mu      sync.Mutex
	paths   []string
	tenants []string
}

func (r *recordingInvalidator) InvalidatePath(_ context.Context, tenantID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, tenantID+":"+path)
	return nil
}

func (r *recordingInvalidator) InvalidateTenant(_ context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, tenantID)
	return nil
}

func (r *recordingInvalidator) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recordingInvalidator) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tenants...)
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return db
}

func newTestPageService(t *testing.T) (*sql.DB, *PageService, *recordingInvalidator) {
	t.Helper()
	db := testDB(t)
	inv := &recordingInvalidator{}
	logger := testutil.TestLoggerSilent()
	return db, NewPageService(db, blocks.NewDefaultRegistry(logger), inv, logger), inv
}

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }
