// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/util"
	"github.com/olegiv/ecdsites/internal/webhook"
)

// Registration statuses.
const (
	RegistrationPending    = "pending"
	RegistrationApproved   = "approved"
	RegistrationRejected   = "rejected"
	RegistrationWaitlisted = "waitlisted"
)

// SubmitRegistrationInput is the public registration form.
type SubmitRegistrationInput struct {
	GuardianName   string `json:"guardian_name" validate:"required,max=120"`
	GuardianEmail  string `json:"guardian_email" validate:"required,email,max=254"`
	GuardianPhone  string `json:"guardian_phone,omitempty" validate:"max=40"`
	ChildName      string `json:"child_name" validate:"required,max=120"`
	ChildBirthDate string `json:"child_birth_date" validate:"required,datetime=2006-01-02"`
	PreferredStart string `json:"preferred_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes          string `json:"notes,omitempty" validate:"max=2000"`
}

// SubmissionMeta describes where a registration came from.
type SubmissionMeta struct {
	Country   string
	UserAgent string
}

// RecordPaymentInput records an offline payment check.
type RecordPaymentInput struct {
	Reference string `json:"reference" validate:"required,max=100"`
	Verified  bool   `json:"verified"`
}

type updateStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected waitlisted"`
}

// SyncNotifier is told when new outbox rows are ready.
type SyncNotifier interface {
	Notify()
}

// RegistrationService stores registration requests and queues them for the
// partner system.
type RegistrationService struct {
	db       *sql.DB
	queries  *store.Queries
	notifier SyncNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistrationService creates a RegistrationService. notifier may be nil.
func NewRegistrationService(db *sql.DB, notifier SyncNotifier, logger *slog.Logger) *RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationService{
		db:       db,
		queries:  store.New(db),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit stores a registration for an active centre together with its
// outbox row, in one transaction.
func (s *RegistrationService) Submit(ctx context.Context, tenantID string, in SubmitRegistrationInput, meta SubmissionMeta) (store.RegistrationRequest, error) {
	in.GuardianName = strings.TrimSpace(in.GuardianName)
	in.GuardianEmail = strings.TrimSpace(in.GuardianEmail)
	in.GuardianPhone = strings.TrimSpace(in.GuardianPhone)
	in.ChildName = strings.TrimSpace(in.ChildName)
	in.Notes = strings.TrimSpace(in.Notes)

	if err := validateInput(in); err != nil {
		return store.RegistrationRequest{}, err
	}

	now := s.now().UTC()
	dob, _ := time.Parse(time.DateOnly, in.ChildBirthDate)
	if dob.After(now) {
		return store.RegistrationRequest{}, fieldError("child_birth_date", "must not be in the future")
	}
	var preferred sql.NullTime
	if in.PreferredStart != "" {
		start, _ := time.Parse(time.DateOnly, in.PreferredStart)
		preferred = util.NullTimeFromValue(start)
	}

	tenant, err := s.queries.GetTenantByID(ctx, tenantID)
	if err != nil {
		return store.RegistrationRequest{}, lookupErr("centre", tenantID, err)
	}
	if tenant.Status != TenantActive {
		return store.RegistrationRequest{}, fmt.Errorf("centre %s is %s: %w", tenantID, tenant.Status, ErrNotFound)
	}

	var reg store.RegistrationRequest
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		reg, err = q.CreateRegistration(ctx, store.CreateRegistrationParams{
			ID:               uuid.NewString(),
			TenantID:         tenantID,
			GuardianName:     in.GuardianName,
			GuardianEmail:    in.GuardianEmail,
			GuardianPhone:    in.GuardianPhone,
			ChildName:        in.ChildName,
			ChildBirthDate:   dob,
			PreferredStart:   preferred,
			Notes:            in.Notes,
			SubmittedCountry: meta.Country,
			SubmittedAgent:   meta.UserAgent,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return fmt.Errorf("creating registration: %w", err)
		}
		return enqueueSync(ctx, q, webhook.EventRegistrationCreated, reg, tenant.Slug, now)
	})
	if err != nil {
		return store.RegistrationRequest{}, err
	}

	s.notify()
	s.logger.Info("registration submitted", "registration_id", reg.ID, "tenant_id", tenantID)
	return reg, nil
}

// List returns a centre's registrations, newest first.
func (s *RegistrationService) List(ctx context.Context, tenantID string) ([]store.RegistrationRequest, error) {
	if _, err := s.queries.GetTenantByID(ctx, tenantID); err != nil {
		return nil, lookupErr("centre", tenantID, err)
	}
	regs, err := s.queries.ListRegistrationsByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	if regs == nil {
		regs = []store.RegistrationRequest{}
	}
	return regs, nil
}

// UpdateStatus changes a registration's status and queues a sync event.
func (s *RegistrationService) UpdateStatus(ctx context.Context, id, status string) (store.RegistrationRequest, error) {
	if err := validateInput(updateStatusInput{Status: status}); err != nil {
		return store.RegistrationRequest{}, err
	}

	return s.update(ctx, id, webhook.EventRegistrationStatusChanged, func(q *store.Queries, now time.Time) (store.RegistrationRequest, error) {
		return q.UpdateRegistrationStatus(ctx, store.UpdateRegistrationStatusParams{
			Status:    status,
			UpdatedAt: now,
			ID:        id,
		})
	})
}

// RecordPayment stores a payment reference and its verification state and
// queues a sync event.
func (s *RegistrationService) RecordPayment(ctx context.Context, id string, in RecordPaymentInput) (store.RegistrationRequest, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	if err := validateInput(in); err != nil {
		return store.RegistrationRequest{}, err
	}

	return s.update(ctx, id, webhook.EventRegistrationPayment, func(q *store.Queries, now time.Time) (store.RegistrationRequest, error) {
		verifiedAt := sql.NullTime{}
		if in.Verified {
			verifiedAt = util.NullTimeFromValue(now)
		}
		return q.UpdateRegistrationPayment(ctx, store.UpdateRegistrationPaymentParams{
			PaymentReference:  in.Reference,
			PaymentVerified:   in.Verified,
			PaymentVerifiedAt: verifiedAt,
			UpdatedAt:         now,
			ID:                id,
		})
	})
}

func (s *RegistrationService) update(
	ctx context.Context,
	id, event string,
	apply func(q *store.Queries, now time.Time) (store.RegistrationRequest, error),
) (store.RegistrationRequest, error) {
	existing, err := s.queries.GetRegistration(ctx, id)
	if err != nil {
		return store.RegistrationRequest{}, lookupErr("registration", id, err)
	}
	tenant, err := s.queries.GetTenantByID(ctx, existing.TenantID)
	if err != nil {
		return store.RegistrationRequest{}, lookupErr("centre", existing.TenantID, err)
	}

	now := s.now().UTC()
	var reg store.RegistrationRequest
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		reg, err = apply(q, now)
		if err != nil {
			return fmt.Errorf("updating registration: %w", err)
		}
		return enqueueSync(ctx, q, event, reg, tenant.Slug, now)
	})
	if err != nil {
		return store.RegistrationRequest{}, err
	}

	s.notify()
	s.logger.Info("registration updated", "registration_id", id, "event", event, "status", reg.Status)
	return reg, nil
}

func (s *RegistrationService) notify() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

// enqueueSync writes an outbox row for event.
func enqueueSync(ctx context.Context, q *store.Queries, event string, reg store.RegistrationRequest, centreSlug string, now time.Time) error {
	ev := webhook.NewEvent(event, webhook.NewRegistrationData(reg, centreSlug))
	ev.Timestamp = now
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding sync payload: %w", err)
	}

	if _, err := q.CreateSyncDelivery(ctx, store.CreateSyncDeliveryParams{
		ID:             uuid.NewString(),
		RegistrationID: reg.ID,
		Event:          event,
		Payload:        string(payload),
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		return fmt.Errorf("queueing sync delivery: %w", err)
	}
	return nil
}
