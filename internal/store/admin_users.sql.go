// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const adminUserColumns = `id, email, name, password_hash, last_login_at, created_at, updated_at`

func scanAdminUser(row rowScanner) (AdminUser, error) {
	var u AdminUser
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createAdminUser = `INSERT INTO admin_users (id, email, name, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + adminUserColumns

type CreateAdminUserParams struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (q *Queries) CreateAdminUser(ctx context.Context, arg CreateAdminUserParams) (AdminUser, error) {
	row := q.db.QueryRowContext(ctx, createAdminUser,
		arg.ID,
		arg.Email,
		arg.Name,
		arg.PasswordHash,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanAdminUser(row)
}

const getAdminUserByEmail = `SELECT ` + adminUserColumns + ` FROM admin_users WHERE email = ?`

func (q *Queries) GetAdminUserByEmail(ctx context.Context, email string) (AdminUser, error) {
	return scanAdminUser(q.db.QueryRowContext(ctx, getAdminUserByEmail, email))
}

const getAdminUserByID = `SELECT ` + adminUserColumns + ` FROM admin_users WHERE id = ?`

func (q *Queries) GetAdminUserByID(ctx context.Context, id string) (AdminUser, error) {
	return scanAdminUser(q.db.QueryRowContext(ctx, getAdminUserByID, id))
}

const updateAdminUserLogin = `UPDATE admin_users SET last_login_at = ?, password_hash = ?, updated_at = ? WHERE id = ?`

type UpdateAdminUserLoginParams struct {
	LastLoginAt  sql.NullTime
	PasswordHash string
	UpdatedAt    time.Time
	ID           string
}

func (q *Queries) UpdateAdminUserLogin(ctx context.Context, arg UpdateAdminUserLoginParams) error {
	_, err := q.db.ExecContext(ctx, updateAdminUserLogin, arg.LastLoginAt, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}
