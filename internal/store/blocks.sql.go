// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const blockColumns = `id, page_id, block_key, position, props, created_at`

const listBlocksByPage = `SELECT ` + blockColumns + ` FROM blocks WHERE page_id = ? ORDER BY position`

func (q *Queries) ListBlocksByPage(ctx context.Context, pageID string) ([]Block, error) {
	rows, err := q.db.QueryContext(ctx, listBlocksByPage, pageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(
			&b.ID,
			&b.PageID,
			&b.BlockKey,
			&b.Position,
			&b.Props,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteBlocksByPage = `DELETE FROM blocks WHERE page_id = ?`

func (q *Queries) DeleteBlocksByPage(ctx context.Context, pageID string) error {
	_, err := q.db.ExecContext(ctx, deleteBlocksByPage, pageID)
	return err
}

const createBlock = `INSERT INTO blocks (id, page_id, block_key, position, props, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateBlockParams struct {
	ID        string
	PageID    string
	BlockKey  string
	Position  int64
	Props     string
	CreatedAt time.Time
}

func (q *Queries) CreateBlock(ctx context.Context, arg CreateBlockParams) error {
	_, err := q.db.ExecContext(ctx, createBlock,
		arg.ID,
		arg.PageID,
		arg.BlockKey,
		arg.Position,
		arg.Props,
		arg.CreatedAt,
	)
	return err
}
