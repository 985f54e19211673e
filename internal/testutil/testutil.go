// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for ecdsites.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ecdsites/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a test logger that only outputs errors.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary test database with migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ecdsites-test.db")

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
	}
}

// CreateTenant inserts an active tenant with the given slug.
func CreateTenant(t *testing.T, db *sql.DB, slug string) store.Tenant {
	t.Helper()

	now := time.Now().UTC()
	tenant, err := store.New(db).CreateTenant(context.Background(), store.CreateTenantParams{
		ID:             uuid.NewString(),
		Slug:           slug,
		Name:           slug + " Centre",
		Status:         "active",
		PrimaryColor:   "#1d4ed8",
		SecondaryColor: "#f59e0b",
		Tier:           "starter",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateTenant(%q): %v", slug, err)
	}
	return tenant
}

// BindVerifiedDomain binds hostname to tenantID and marks it verified.
func BindVerifiedDomain(t *testing.T, db *sql.DB, tenantID, hostname string) store.DomainBinding {
	t.Helper()

	ctx := context.Background()
	q := store.New(db)
	now := time.Now().UTC()

	binding, err := q.CreateDomainBinding(ctx, store.CreateDomainBindingParams{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		Hostname:          hostname,
		VerificationToken: uuid.NewString(),
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("CreateDomainBinding(%q): %v", hostname, err)
	}

	binding, err = q.VerifyDomainBinding(ctx, store.VerifyDomainBindingParams{
		VerifiedAt: sql.NullTime{Time: now, Valid: true},
		UpdatedAt:  now,
		ID:         binding.ID,
	})
	if err != nil {
		t.Fatalf("VerifyDomainBinding(%q): %v", hostname, err)
	}
	return binding
}
