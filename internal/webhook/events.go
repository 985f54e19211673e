// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook mirrors registration requests to the partner system
// through the sync_deliveries outbox.
package webhook

import (
	"time"

	"github.com/olegiv/ecdsites/internal/store"
)

// Partner sync event types.
const (
	EventRegistrationCreated       = "registration.created"
	EventRegistrationStatusChanged = "registration.status_changed"
	EventRegistrationPayment       = "registration.payment_recorded"
)

// Event is the JSON document POSTed to the partner system.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates a new partner sync event.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// RegistrationData is the registration snapshot carried by every event.
type RegistrationData struct {
	ID                string     `json:"id"`
	CentreID          string     `json:"centre_id"`
	CentreSlug        string     `json:"centre_slug"`
	GuardianName      string     `json:"guardian_name"`
	GuardianEmail     string     `json:"guardian_email"`
	GuardianPhone     string     `json:"guardian_phone,omitempty"`
	ChildName         string     `json:"child_name"`
	ChildBirthDate    string     `json:"child_birth_date"`
	PreferredStart    string     `json:"preferred_start,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Status            string     `json:"status"`
	PaymentReference  string     `json:"payment_reference,omitempty"`
	PaymentVerified   bool       `json:"payment_verified"`
	PaymentVerifiedAt *time.Time `json:"payment_verified_at,omitempty"`
	SubmittedCountry  string     `json:"submitted_country,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewRegistrationData builds the event snapshot of r.
func NewRegistrationData(r store.RegistrationRequest, centreSlug string) RegistrationData {
	data := RegistrationData{
		ID:               r.ID,
		CentreID:         r.TenantID,
		CentreSlug:       centreSlug,
		GuardianName:     r.GuardianName,
		GuardianEmail:    r.GuardianEmail,
		GuardianPhone:    r.GuardianPhone,
		ChildName:        r.ChildName,
		ChildBirthDate:   r.ChildBirthDate.Format(time.DateOnly),
		Notes:            r.Notes,
		Status:           r.Status,
		PaymentReference: r.PaymentReference,
		PaymentVerified:  r.PaymentVerified,
		SubmittedCountry: r.SubmittedCountry,
		CreatedAt:        r.CreatedAt,
	}
	if r.PreferredStart.Valid {
		data.PreferredStart = r.PreferredStart.Time.Format(time.DateOnly)
	}
	if r.PaymentVerifiedAt.Valid {
		t := r.PaymentVerifiedAt.Time
		data.PaymentVerifiedAt = &t
	}
	return data
}
