// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const tenantColumns = `id, slug, name, status, primary_domain, primary_color, secondary_color,
	logo_url, tier, contact_email, contact_phone, created_at, updated_at`

func scanTenant(row rowScanner) (Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID,
		&t.Slug,
		&t.Name,
		&t.Status,
		&t.PrimaryDomain,
		&t.PrimaryColor,
		&t.SecondaryColor,
		&t.LogoUrl,
		&t.Tier,
		&t.ContactEmail,
		&t.ContactPhone,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func scanTenants(rows *sql.Rows) ([]Tenant, error) {
	defer func() { _ = rows.Close() }()
	var items []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTenant = `INSERT INTO tenants (
	id, slug, name, status, primary_domain, primary_color, secondary_color,
	logo_url, tier, contact_email, contact_phone, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + tenantColumns

type CreateTenantParams struct {
	ID             string
	Slug           string
	Name           string
	Status         string
	PrimaryDomain  sql.NullString
	PrimaryColor   string
	SecondaryColor string
	LogoUrl        string
	Tier           string
	ContactEmail   string
	ContactPhone   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error) {
	row := q.db.QueryRowContext(ctx, createTenant,
		arg.ID,
		arg.Slug,
		arg.Name,
		arg.Status,
		arg.PrimaryDomain,
		arg.PrimaryColor,
		arg.SecondaryColor,
		arg.LogoUrl,
		arg.Tier,
		arg.ContactEmail,
		arg.ContactPhone,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanTenant(row)
}

const getTenantByID = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = ?`

func (q *Queries) GetTenantByID(ctx context.Context, id string) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getTenantByID, id))
}

const getTenantBySlug = `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = ?`

func (q *Queries) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getTenantBySlug, slug))
}

const getActiveTenantBySlug = `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = ? AND status = 'active'`

func (q *Queries) GetActiveTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getActiveTenantBySlug, slug))
}

const getTenantByVerifiedHostname = `SELECT t.id, t.slug, t.name, t.status, t.primary_domain, t.primary_color,
	t.secondary_color, t.logo_url, t.tier, t.contact_email, t.contact_phone, t.created_at, t.updated_at
FROM domain_bindings d
JOIN tenants t ON t.id = d.tenant_id
WHERE d.hostname = ? AND d.verified_at IS NOT NULL AND t.status = 'active'`

func (q *Queries) GetTenantByVerifiedHostname(ctx context.Context, hostname string) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getTenantByVerifiedHostname, hostname))
}

const listActiveTenants = `SELECT ` + tenantColumns + ` FROM tenants WHERE status = 'active' ORDER BY name`

func (q *Queries) ListActiveTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := q.db.QueryContext(ctx, listActiveTenants)
	if err != nil {
		return nil, err
	}
	return scanTenants(rows)
}

const listTenants = `SELECT ` + tenantColumns + ` FROM tenants ORDER BY name`

func (q *Queries) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := q.db.QueryContext(ctx, listTenants)
	if err != nil {
		return nil, err
	}
	return scanTenants(rows)
}

const countTenantsBySlug = `SELECT COUNT(*) FROM tenants WHERE slug = ?`

func (q *Queries) CountTenantsBySlug(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countTenantsBySlug, slug).Scan(&count)
	return count, err
}

const updateTenant = `UPDATE tenants SET
	name = ?, status = ?, primary_domain = ?, primary_color = ?, secondary_color = ?,
	tier = ?, contact_email = ?, contact_phone = ?, updated_at = ?
WHERE id = ?
RETURNING ` + tenantColumns

type UpdateTenantParams struct {
	Name           string
	Status         string
	PrimaryDomain  sql.NullString
	PrimaryColor   string
	SecondaryColor string
	Tier           string
	ContactEmail   string
	ContactPhone   string
	UpdatedAt      time.Time
	ID             string
}

func (q *Queries) UpdateTenant(ctx context.Context, arg UpdateTenantParams) (Tenant, error) {
	row := q.db.QueryRowContext(ctx, updateTenant,
		arg.Name,
		arg.Status,
		arg.PrimaryDomain,
		arg.PrimaryColor,
		arg.SecondaryColor,
		arg.Tier,
		arg.ContactEmail,
		arg.ContactPhone,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanTenant(row)
}

const updateTenantLogo = `UPDATE tenants SET logo_url = ?, updated_at = ? WHERE id = ?
RETURNING ` + tenantColumns

type UpdateTenantLogoParams struct {
	LogoUrl   string
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) UpdateTenantLogo(ctx context.Context, arg UpdateTenantLogoParams) (Tenant, error) {
	return scanTenant(q.db.QueryRowContext(ctx, updateTenantLogo, arg.LogoUrl, arg.UpdatedAt, arg.ID))
}
