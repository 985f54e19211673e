// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "store-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func mustCreateTenant(t *testing.T, q *Queries, slug, status string) Tenant {
	t.Helper()
	now := time.Now().UTC()
	tenant, err := q.CreateTenant(context.Background(), CreateTenantParams{
		ID:             uuid.NewString(),
		Slug:           slug,
		Name:           slug,
		Status:         status,
		PrimaryColor:   "#000000",
		SecondaryColor: "#ffffff",
		Tier:           "starter",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateTenant(%q): %v", slug, err)
	}
	return tenant
}

func mustCreatePage(t *testing.T, q *Queries, tenantID, slug string) Page {
	t.Helper()
	now := time.Now().UTC()
	page, err := q.CreatePage(context.Background(), CreatePageParams{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Title:     slug,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePage(%q): %v", slug, err)
	}
	return page
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	for _, table := range []string{"tenants", "domain_bindings", "pages", "blocks", "navigation_menus",
		"themes", "registration_requests", "sync_deliveries", "admin_users", "events", "sessions"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestTenantBySlug(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	active := mustCreateTenant(t, q, "sunshine", "active")
	mustCreateTenant(t, q, "closed", "archived")

	got, err := q.GetActiveTenantBySlug(ctx, "sunshine")
	if err != nil {
		t.Fatalf("GetActiveTenantBySlug: %v", err)
	}
	if got.ID != active.ID {
		t.Errorf("ID = %q, want %q", got.ID, active.ID)
	}

	if _, err := q.GetActiveTenantBySlug(ctx, "closed"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("archived tenant: err = %v, want sql.ErrNoRows", err)
	}
	if _, err := q.GetTenantBySlug(ctx, "closed"); err != nil {
		t.Errorf("GetTenantBySlug ignores status: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := testDB(t)
	q := New(db)
	tenant := mustCreateTenant(t, q, "sunshine", "active")
	now := time.Now().UTC()

	_, notNullErr := db.Exec(`INSERT INTO pages (id, tenant_id, title, slug, created_at, updated_at) VALUES (?, ?, NULL, 'x', ?, ?)`,
		uuid.NewString(), tenant.ID, now, now)
	_, pkErr := db.Exec(`INSERT INTO tenants (id, slug, name, status, primary_color, secondary_color, tier, created_at, updated_at)
		VALUES (?, 'other', 'Other', 'active', '#000000', '#ffffff', 'starter', ?, ?)`, tenant.ID, now, now)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error with matching text", errors.New("UNIQUE constraint failed: tenants.slug"), false},
		{"not null violation", notNullErr, false},
		{"primary key violation", pkErr, true},
		{"wrapped primary key violation", fmt.Errorf("creating tenant: %w", pkErr), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTenantSlugUnique(t *testing.T) {
	db := testDB(t)
	q := New(db)
	mustCreateTenant(t, q, "sunshine", "active")

	now := time.Now().UTC()
	_, err := q.CreateTenant(context.Background(), CreateTenantParams{
		ID: uuid.NewString(), Slug: "sunshine", Name: "Copy", Status: "active",
		PrimaryColor: "#000000", SecondaryColor: "#ffffff", Tier: "starter",
		CreatedAt: now, UpdatedAt: now,
	})
	if !IsUniqueViolation(err) {
		t.Errorf("err = %v, want unique violation", err)
	}
}

func TestVerifiedHostname(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()
	tenant := mustCreateTenant(t, q, "sunshine", "active")
	now := time.Now().UTC()

	binding, err := q.CreateDomainBinding(ctx, CreateDomainBindingParams{
		ID:                uuid.NewString(),
		TenantID:          tenant.ID,
		Hostname:          "www.sunshine.test",
		IsPrimary:         true,
		VerificationToken: "token",
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("CreateDomainBinding: %v", err)
	}

	if _, err := q.GetTenantByVerifiedHostname(ctx, "www.sunshine.test"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("pending binding: err = %v, want sql.ErrNoRows", err)
	}

	if _, err := q.VerifyDomainBinding(ctx, VerifyDomainBindingParams{
		VerifiedAt: sql.NullTime{Time: now, Valid: true},
		UpdatedAt:  now,
		ID:         binding.ID,
	}); err != nil {
		t.Fatalf("VerifyDomainBinding: %v", err)
	}

	got, err := q.GetTenantByVerifiedHostname(ctx, "www.sunshine.test")
	if err != nil {
		t.Fatalf("GetTenantByVerifiedHostname: %v", err)
	}
	if got.ID != tenant.ID {
		t.Errorf("ID = %q, want %q", got.ID, tenant.ID)
	}

	if _, err := db.ExecContext(ctx, `UPDATE tenants SET status = 'suspended' WHERE id = ?`, tenant.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := q.GetTenantByVerifiedHostname(ctx, "www.sunshine.test"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("suspended tenant: err = %v, want sql.ErrNoRows", err)
	}
}

func TestPageSlugUniquePerTenant(t *testing.T) {
	db := testDB(t)
	q := New(db)
	a := mustCreateTenant(t, q, "a", "active")
	b := mustCreateTenant(t, q, "b", "active")

	mustCreatePage(t, q, a.ID, "about")
	mustCreatePage(t, q, b.ID, "about")

	now := time.Now().UTC()
	_, err := q.CreatePage(context.Background(), CreatePageParams{
		ID: uuid.NewString(), TenantID: a.ID, Title: "Again", Slug: "about",
		CreatedAt: now, UpdatedAt: now,
	})
	if !IsUniqueViolation(err) {
		t.Errorf("err = %v, want unique violation", err)
	}
}

func TestPublishedPageLookup(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()
	tenant := mustCreateTenant(t, q, "sunshine", "active")
	page := mustCreatePage(t, q, tenant.ID, "about")

	params := GetPublishedPageBySlugParams{TenantID: tenant.ID, Slug: "about"}
	if _, err := q.GetPublishedPageBySlug(ctx, params); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("draft: err = %v, want sql.ErrNoRows", err)
	}

	now := time.Now().UTC()
	if _, err := q.SetPagePublished(ctx, SetPagePublishedParams{
		IsPublished: true,
		PublishedAt: sql.NullTime{Time: now, Valid: true},
		ID:          page.ID,
	}); err != nil {
		t.Fatalf("SetPagePublished: %v", err)
	}

	got, err := q.GetPublishedPageBySlug(ctx, params)
	if err != nil {
		t.Fatalf("GetPublishedPageBySlug: %v", err)
	}
	if !got.IsPublished {
		t.Error("IsPublished = false, want true")
	}
	if !got.UpdatedAt.Equal(page.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, page.UpdatedAt)
	}

	later := sql.NullTime{Time: now.Add(time.Hour), Valid: true}
	unpublished, err := q.SetPagePublished(ctx, SetPagePublishedParams{IsPublished: false, PublishedAt: later, ID: page.ID})
	if err != nil {
		t.Fatalf("SetPagePublished(false): %v", err)
	}
	if !unpublished.PublishedAt.Valid || !unpublished.PublishedAt.Time.Equal(got.PublishedAt.Time) {
		t.Errorf("PublishedAt = %v, want first publish time %v", unpublished.PublishedAt, got.PublishedAt)
	}
}

func TestDeletePageCascadesBlocks(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()
	tenant := mustCreateTenant(t, q, "sunshine", "active")
	page := mustCreatePage(t, q, tenant.ID, "about")

	for i, key := range []string{"hero", "text"} {
		if err := q.CreateBlock(ctx, CreateBlockParams{
			ID: uuid.NewString(), PageID: page.ID, BlockKey: key,
			Position: int64(i), Props: `{}`, CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("CreateBlock: %v", err)
		}
	}

	blocks, err := q.ListBlocksByPage(ctx, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 || blocks[0].BlockKey != "hero" {
		t.Fatalf("blocks = %+v, want hero then text", blocks)
	}

	n, err := q.DeletePage(ctx, page.ID)
	if err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if n != 1 {
		t.Errorf("DeletePage rows = %d, want 1", n)
	}
	var left int
	if err := db.QueryRow(`SELECT COUNT(*) FROM blocks WHERE page_id = ?`, page.ID).Scan(&left); err != nil {
		t.Fatal(err)
	}
	if left != 0 {
		t.Errorf("blocks left = %d, want 0", left)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := RunInTx(ctx, db, func(q *Queries) error {
		mustCreateTenant(t, q, "ghost", "active")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx error = %v, want %v", err, boom)
	}
	if _, err := New(db).GetTenantBySlug(ctx, "ghost"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("tenant survived rollback: err = %v", err)
	}

	err = RunInTx(ctx, db, func(q *Queries) error {
		mustCreateTenant(t, q, "kept", "active")
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
	if _, err := New(db).GetTenantBySlug(ctx, "kept"); err != nil {
		t.Errorf("committed tenant missing: %v", err)
	}
}
