// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const domainBindingColumns = `id, tenant_id, hostname, is_primary, verification_token, verified_at, created_at, updated_at`

func scanDomainBinding(row rowScanner) (DomainBinding, error) {
	var d DomainBinding
	err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.Hostname,
		&d.IsPrimary,
		&d.VerificationToken,
		&d.VerifiedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

const createDomainBinding = `INSERT INTO domain_bindings (
	id, tenant_id, hostname, is_primary, verification_token, verified_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, NULL, ?, ?)
RETURNING ` + domainBindingColumns

type CreateDomainBindingParams struct {
	ID                string
	TenantID          string
	Hostname          string
	IsPrimary         bool
	VerificationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (q *Queries) CreateDomainBinding(ctx context.Context, arg CreateDomainBindingParams) (DomainBinding, error) {
	row := q.db.QueryRowContext(ctx, createDomainBinding,
		arg.ID,
		arg.TenantID,
		arg.Hostname,
		arg.IsPrimary,
		arg.VerificationToken,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanDomainBinding(row)
}

// upsertDomainBinding never moves a hostname between tenants: when the
// hostname belongs to another tenant the WHERE clause suppresses the update
// and no row is returned.
const upsertDomainBinding = `INSERT INTO domain_bindings (
	id, tenant_id, hostname, is_primary, verification_token, verified_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, NULL, ?, ?)
ON CONFLICT (hostname) DO UPDATE SET
	is_primary = excluded.is_primary,
	updated_at = excluded.updated_at
WHERE domain_bindings.tenant_id = excluded.tenant_id
RETURNING ` + domainBindingColumns

func (q *Queries) UpsertDomainBinding(ctx context.Context, arg CreateDomainBindingParams) (DomainBinding, error) {
	row := q.db.QueryRowContext(ctx, upsertDomainBinding,
		arg.ID,
		arg.TenantID,
		arg.Hostname,
		arg.IsPrimary,
		arg.VerificationToken,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanDomainBinding(row)
}

const getDomainBinding = `SELECT ` + domainBindingColumns + ` FROM domain_bindings WHERE id = ?`

func (q *Queries) GetDomainBinding(ctx context.Context, id string) (DomainBinding, error) {
	return scanDomainBinding(q.db.QueryRowContext(ctx, getDomainBinding, id))
}

const listDomainBindingsByTenant = `SELECT ` + domainBindingColumns + `
FROM domain_bindings WHERE tenant_id = ? ORDER BY is_primary DESC, hostname`

func (q *Queries) ListDomainBindingsByTenant(ctx context.Context, tenantID string) ([]DomainBinding, error) {
	rows, err := q.db.QueryContext(ctx, listDomainBindingsByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []DomainBinding
	for rows.Next() {
		d, err := scanDomainBinding(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const verifyDomainBinding = `UPDATE domain_bindings SET verified_at = ?, updated_at = ? WHERE id = ?
RETURNING ` + domainBindingColumns

type VerifyDomainBindingParams struct {
	VerifiedAt sql.NullTime
	UpdatedAt  time.Time
	ID         string
}

func (q *Queries) VerifyDomainBinding(ctx context.Context, arg VerifyDomainBindingParams) (DomainBinding, error) {
	return scanDomainBinding(q.db.QueryRowContext(ctx, verifyDomainBinding, arg.VerifiedAt, arg.UpdatedAt, arg.ID))
}
