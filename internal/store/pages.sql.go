// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const pageColumns = `id, tenant_id, title, slug, meta_description, is_published, published_at, created_at, updated_at`

func scanPage(row rowScanner) (Page, error) {
	var p Page
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.Title,
		&p.Slug,
		&p.MetaDescription,
		&p.IsPublished,
		&p.PublishedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const createPage = `INSERT INTO pages (
	id, tenant_id, title, slug, meta_description, is_published, published_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?)
RETURNING ` + pageColumns

type CreatePageParams struct {
	ID              string
	TenantID        string
	Title           string
	Slug            string
	MetaDescription sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *Queries) CreatePage(ctx context.Context, arg CreatePageParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, createPage,
		arg.ID,
		arg.TenantID,
		arg.Title,
		arg.Slug,
		arg.MetaDescription,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPage(row)
}

const getPageByID = `SELECT ` + pageColumns + ` FROM pages WHERE id = ?`

func (q *Queries) GetPageByID(ctx context.Context, id string) (Page, error) {
	return scanPage(q.db.QueryRowContext(ctx, getPageByID, id))
}

const getPublishedPageBySlug = `SELECT ` + pageColumns + `
FROM pages WHERE tenant_id = ? AND slug = ? AND is_published = 1`

type GetPublishedPageBySlugParams struct {
	TenantID string
	Slug     string
}

func (q *Queries) GetPublishedPageBySlug(ctx context.Context, arg GetPublishedPageBySlugParams) (Page, error) {
	return scanPage(q.db.QueryRowContext(ctx, getPublishedPageBySlug, arg.TenantID, arg.Slug))
}

const listPagesByTenant = `SELECT ` + pageColumns + ` FROM pages WHERE tenant_id = ? ORDER BY title, slug`

func (q *Queries) ListPagesByTenant(ctx context.Context, tenantID string) ([]Page, error) {
	rows, err := q.db.QueryContext(ctx, listPagesByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countPagesBySlug = `SELECT COUNT(*) FROM pages WHERE tenant_id = ? AND slug = ? AND id != ?`

type CountPagesBySlugParams struct {
	TenantID  string
	Slug      string
	ExcludeID string
}

func (q *Queries) CountPagesBySlug(ctx context.Context, arg CountPagesBySlugParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPagesBySlug, arg.TenantID, arg.Slug, arg.ExcludeID).Scan(&count)
	return count, err
}

const updatePage = `UPDATE pages SET title = ?, slug = ?, meta_description = ?, updated_at = ?
WHERE id = ?
RETURNING ` + pageColumns

type UpdatePageParams struct {
	Title           string
	Slug            string
	MetaDescription sql.NullString
	UpdatedAt       time.Time
	ID              string
}

func (q *Queries) UpdatePage(ctx context.Context, arg UpdatePageParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, updatePage,
		arg.Title,
		arg.Slug,
		arg.MetaDescription,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanPage(row)
}

// published_at is written only when still NULL; updated_at is left alone.
const setPagePublished = `UPDATE pages SET is_published = ?, published_at = COALESCE(published_at, ?)
WHERE id = ?
RETURNING ` + pageColumns

type SetPagePublishedParams struct {
	IsPublished bool
	PublishedAt sql.NullTime
	ID          string
}

func (q *Queries) SetPagePublished(ctx context.Context, arg SetPagePublishedParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, setPagePublished,
		arg.IsPublished,
		arg.PublishedAt,
		arg.ID,
	)
	return scanPage(row)
}

const deletePage = `DELETE FROM pages WHERE id = ?`

// DeletePage returns the number of deleted rows.
func (q *Queries) DeletePage(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePage, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
