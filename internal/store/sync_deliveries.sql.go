// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const syncDeliveryColumns = `id, registration_id, event, payload, status, attempts, next_retry_at,
	last_error, response_code, delivered_at, created_at, updated_at`

func scanSyncDelivery(row rowScanner) (SyncDelivery, error) {
	var d SyncDelivery
	err := row.Scan(
		&d.ID,
		&d.RegistrationID,
		&d.Event,
		&d.Payload,
		&d.Status,
		&d.Attempts,
		&d.NextRetryAt,
		&d.LastError,
		&d.ResponseCode,
		&d.DeliveredAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

const createSyncDelivery = `INSERT INTO sync_deliveries (
	id, registration_id, event, payload, status, attempts, next_retry_at, created_at, updated_at
) VALUES (?, ?, ?, ?, 'pending', 0, ?, ?, ?)
RETURNING ` + syncDeliveryColumns

type CreateSyncDeliveryParams struct {
	ID             string
	RegistrationID string
	Event          string
	Payload        string
	NextRetryAt    sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (q *Queries) CreateSyncDelivery(ctx context.Context, arg CreateSyncDeliveryParams) (SyncDelivery, error) {
	row := q.db.QueryRowContext(ctx, createSyncDelivery,
		arg.ID,
		arg.RegistrationID,
		arg.Event,
		arg.Payload,
		arg.NextRetryAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanSyncDelivery(row)
}

const getSyncDelivery = `SELECT ` + syncDeliveryColumns + ` FROM sync_deliveries WHERE id = ?`

func (q *Queries) GetSyncDelivery(ctx context.Context, id string) (SyncDelivery, error) {
	return scanSyncDelivery(q.db.QueryRowContext(ctx, getSyncDelivery, id))
}

const listDueSyncDeliveries = `SELECT ` + syncDeliveryColumns + `
FROM sync_deliveries
WHERE status IN ('pending', 'failed') AND (next_retry_at IS NULL OR next_retry_at <= ?)
ORDER BY created_at
LIMIT ?`

type ListDueSyncDeliveriesParams struct {
	Now   time.Time
	Limit int64
}

func (q *Queries) ListDueSyncDeliveries(ctx context.Context, arg ListDueSyncDeliveriesParams) ([]SyncDelivery, error) {
	rows, err := q.db.QueryContext(ctx, listDueSyncDeliveries, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []SyncDelivery
	for rows.Next() {
		d, err := scanSyncDelivery(rows)
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

const markSyncDelivered = `UPDATE sync_deliveries SET
	status = 'delivered', attempts = attempts + 1, response_code = ?, delivered_at = ?,
	next_retry_at = NULL, last_error = '', updated_at = ?
WHERE id = ?`

type MarkSyncDeliveredParams struct {
	ResponseCode sql.NullInt64
	DeliveredAt  sql.NullTime
	UpdatedAt    time.Time
	ID           string
}

func (q *Queries) MarkSyncDelivered(ctx context.Context, arg MarkSyncDeliveredParams) error {
	_, err := q.db.ExecContext(ctx, markSyncDelivered, arg.ResponseCode, arg.DeliveredAt, arg.UpdatedAt, arg.ID)
	return err
}

const markSyncFailed = `UPDATE sync_deliveries SET
	status = ?, attempts = attempts + 1, response_code = ?, last_error = ?, next_retry_at = ?, updated_at = ?
WHERE id = ?`

type MarkSyncFailedParams struct {
	Status       string
	ResponseCode sql.NullInt64
	LastError    string
	NextRetryAt  sql.NullTime
	UpdatedAt    time.Time
	ID           string
}

func (q *Queries) MarkSyncFailed(ctx context.Context, arg MarkSyncFailedParams) error {
	_, err := q.db.ExecContext(ctx, markSyncFailed,
		arg.Status,
		arg.ResponseCode,
		arg.LastError,
		arg.NextRetryAt,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}
