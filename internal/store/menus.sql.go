// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const menuColumns = `id, tenant_id, name, items, is_active, created_at, updated_at`

func scanMenu(row rowScanner) (NavigationMenu, error) {
	var m NavigationMenu
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.Name,
		&m.Items,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

const createMenu = `INSERT INTO navigation_menus (id, tenant_id, name, items, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)
RETURNING ` + menuColumns

type CreateMenuParams struct {
	ID        string
	TenantID  string
	Name      string
	Items     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateMenu(ctx context.Context, arg CreateMenuParams) (NavigationMenu, error) {
	row := q.db.QueryRowContext(ctx, createMenu,
		arg.ID,
		arg.TenantID,
		arg.Name,
		arg.Items,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanMenu(row)
}

const getMenu = `SELECT ` + menuColumns + ` FROM navigation_menus WHERE id = ?`

func (q *Queries) GetMenu(ctx context.Context, id string) (NavigationMenu, error) {
	return scanMenu(q.db.QueryRowContext(ctx, getMenu, id))
}

const getActiveMenu = `SELECT ` + menuColumns + ` FROM navigation_menus WHERE tenant_id = ? AND is_active = 1`

func (q *Queries) GetActiveMenu(ctx context.Context, tenantID string) (NavigationMenu, error) {
	return scanMenu(q.db.QueryRowContext(ctx, getActiveMenu, tenantID))
}

const listMenusByTenant = `SELECT ` + menuColumns + ` FROM navigation_menus WHERE tenant_id = ? ORDER BY name`

func (q *Queries) ListMenusByTenant(ctx context.Context, tenantID string) ([]NavigationMenu, error) {
	rows, err := q.db.QueryContext(ctx, listMenusByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []NavigationMenu
	for rows.Next() {
		m, err := scanMenu(rows)
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

const deactivateMenus = `UPDATE navigation_menus SET is_active = 0, updated_at = ?
WHERE tenant_id = ? AND is_active = 1 AND id != ?`

type DeactivateMenusParams struct {
	UpdatedAt time.Time
	TenantID  string
	KeepID    string
}

// DeactivateMenus deactivates every active menu of a tenant except KeepID.
func (q *Queries) DeactivateMenus(ctx context.Context, arg DeactivateMenusParams) error {
	_, err := q.db.ExecContext(ctx, deactivateMenus, arg.UpdatedAt, arg.TenantID, arg.KeepID)
	return err
}

const activateMenu = `UPDATE navigation_menus SET is_active = 1, updated_at = ? WHERE id = ?
RETURNING ` + menuColumns

type ActivateMenuParams struct {
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) ActivateMenu(ctx context.Context, arg ActivateMenuParams) (NavigationMenu, error) {
	return scanMenu(q.db.QueryRowContext(ctx, activateMenu, arg.UpdatedAt, arg.ID))
}
