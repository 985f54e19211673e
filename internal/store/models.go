// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type Tenant struct {
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

type DomainBinding struct {
	ID                string
	TenantID          string
	Hostname          string
	IsPrimary         bool
	VerificationToken string
	VerifiedAt        sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Page struct {
	ID              string
	TenantID        string
	Title           string
	Slug            string
	MetaDescription sql.NullString
	IsPublished     bool
	PublishedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Block struct {
	ID        string
	PageID    string
	BlockKey  string
	Position  int64
	Props     string
	CreatedAt time.Time
}

type NavigationMenu struct {
	ID        string
	TenantID  string
	Name      string
	Items     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Theme struct {
	ID        string
	TenantID  string
	Name      string
	Settings  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RegistrationRequest struct {
	ID                string
	TenantID          string
	GuardianName      string
	GuardianEmail     string
	GuardianPhone     string
	ChildName         string
	ChildBirthDate    time.Time
	PreferredStart    sql.NullTime
	Notes             string
	Status            string
	PaymentReference  string
	PaymentVerified   bool
	PaymentVerifiedAt sql.NullTime
	SubmittedCountry  string
	SubmittedAgent    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type SyncDelivery struct {
	ID             string
	RegistrationID string
	Event          string
	Payload        string
	Status         string
	Attempts       int64
	NextRetryAt    sql.NullTime
	LastError      string
	ResponseCode   sql.NullInt64
	DeliveredAt    sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type AdminUser struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	LastLoginAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}
