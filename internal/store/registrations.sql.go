// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const registrationColumns = `id, tenant_id, guardian_name, guardian_email, guardian_phone, child_name,
	child_birth_date, preferred_start, notes, status, payment_reference, payment_verified,
	payment_verified_at, submitted_country, submitted_agent, created_at, updated_at`

func scanRegistration(row rowScanner) (RegistrationRequest, error) {
	var r RegistrationRequest
	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.GuardianName,
		&r.GuardianEmail,
		&r.GuardianPhone,
		&r.ChildName,
		&r.ChildBirthDate,
		&r.PreferredStart,
		&r.Notes,
		&r.Status,
		&r.PaymentReference,
		&r.PaymentVerified,
		&r.PaymentVerifiedAt,
		&r.SubmittedCountry,
		&r.SubmittedAgent,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const createRegistration = `INSERT INTO registration_requests (
	id, tenant_id, guardian_name, guardian_email, guardian_phone, child_name,
	child_birth_date, preferred_start, notes, status, submitted_country, submitted_agent,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?)
RETURNING ` + registrationColumns

type CreateRegistrationParams struct {
	ID               string
	TenantID         string
	GuardianName     string
	GuardianEmail    string
	GuardianPhone    string
	ChildName        string
	ChildBirthDate   time.Time
	PreferredStart   sql.NullTime
	Notes            string
	SubmittedCountry string
	SubmittedAgent   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (q *Queries) CreateRegistration(ctx context.Context, arg CreateRegistrationParams) (RegistrationRequest, error) {
	row := q.db.QueryRowContext(ctx, createRegistration,
		arg.ID,
		arg.TenantID,
		arg.GuardianName,
		arg.GuardianEmail,
		arg.GuardianPhone,
		arg.ChildName,
		arg.ChildBirthDate,
		arg.PreferredStart,
		arg.Notes,
		arg.SubmittedCountry,
		arg.SubmittedAgent,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanRegistration(row)
}

const getRegistration = `SELECT ` + registrationColumns + ` FROM registration_requests WHERE id = ?`

func (q *Queries) GetRegistration(ctx context.Context, id string) (RegistrationRequest, error) {
	return scanRegistration(q.db.QueryRowContext(ctx, getRegistration, id))
}

const listRegistrationsByTenant = `SELECT ` + registrationColumns + `
FROM registration_requests WHERE tenant_id = ? ORDER BY created_at DESC`

func (q *Queries) ListRegistrationsByTenant(ctx context.Context, tenantID string) ([]RegistrationRequest, error) {
	rows, err := q.db.QueryContext(ctx, listRegistrationsByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []RegistrationRequest
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateRegistrationStatus = `UPDATE registration_requests SET status = ?, updated_at = ? WHERE id = ?
RETURNING ` + registrationColumns

type UpdateRegistrationStatusParams struct {
	Status    string
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) UpdateRegistrationStatus(ctx context.Context, arg UpdateRegistrationStatusParams) (RegistrationRequest, error) {
	return scanRegistration(q.db.QueryRowContext(ctx, updateRegistrationStatus, arg.Status, arg.UpdatedAt, arg.ID))
}

const updateRegistrationPayment = `UPDATE registration_requests SET
	payment_reference = ?, payment_verified = ?, payment_verified_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + registrationColumns

type UpdateRegistrationPaymentParams struct {
	PaymentReference  string
	PaymentVerified   bool
	PaymentVerifiedAt sql.NullTime
	UpdatedAt         time.Time
	ID                string
}

func (q *Queries) UpdateRegistrationPayment(ctx context.Context, arg UpdateRegistrationPaymentParams) (RegistrationRequest, error) {
	row := q.db.QueryRowContext(ctx, updateRegistrationPayment,
		arg.PaymentReference,
		arg.PaymentVerified,
		arg.PaymentVerifiedAt,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanRegistration(row)
}
