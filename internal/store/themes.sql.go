// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const themeColumns = `id, tenant_id, name, settings, is_active, created_at, updated_at`

func scanTheme(row rowScanner) (Theme, error) {
	var m Theme
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.Name,
		&m.Settings,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

const createTheme = `INSERT INTO themes (id, tenant_id, name, settings, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)
RETURNING ` + themeColumns

type CreateThemeParams struct {
	ID        string
	TenantID  string
	Name      string
	Settings  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateTheme(ctx context.Context, arg CreateThemeParams) (Theme, error) {
	row := q.db.QueryRowContext(ctx, createTheme,
		arg.ID,
		arg.TenantID,
		arg.Name,
		arg.Settings,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanTheme(row)
}

const getTheme = `SELECT ` + themeColumns + ` FROM themes WHERE id = ?`

func (q *Queries) GetTheme(ctx context.Context, id string) (Theme, error) {
	return scanTheme(q.db.QueryRowContext(ctx, getTheme, id))
}

const getActiveTheme = `SELECT ` + themeColumns + ` FROM themes WHERE tenant_id = ? AND is_active = 1`

func (q *Queries) GetActiveTheme(ctx context.Context, tenantID string) (Theme, error) {
	return scanTheme(q.db.QueryRowContext(ctx, getActiveTheme, tenantID))
}

const listThemesByTenant = `SELECT ` + themeColumns + ` FROM themes WHERE tenant_id = ? ORDER BY name`

func (q *Queries) ListThemesByTenant(ctx context.Context, tenantID string) ([]Theme, error) {
	rows, err := q.db.QueryContext(ctx, listThemesByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Theme
	for rows.Next() {
		m, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deactivateThemes = `UPDATE themes SET is_active = 0, updated_at = ?
WHERE tenant_id = ? AND is_active = 1 AND id != ?`

type DeactivateThemesParams struct {
	UpdatedAt time.Time
	TenantID  string
	KeepID    string
}

// DeactivateThemes deactivates every active theme of a tenant except KeepID.
func (q *Queries) DeactivateThemes(ctx context.Context, arg DeactivateThemesParams) error {
	_, err := q.db.ExecContext(ctx, deactivateThemes, arg.UpdatedAt, arg.TenantID, arg.KeepID)
	return err
}

const activateTheme = `UPDATE themes SET is_active = 1, updated_at = ? WHERE id = ?
RETURNING ` + themeColumns

type ActivateThemeParams struct {
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) ActivateTheme(ctx context.Context, arg ActivateThemeParams) (Theme, error) {
	return scanTheme(q.db.QueryRowContext(ctx, activateTheme, arg.UpdatedAt, arg.ID))
}
