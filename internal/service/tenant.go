// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/imaging"
	"github.com/olegiv/ecdsites/internal/publish"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/util"
)

// Tenant statuses.
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
	TenantArchived  = "archived"
)

// MaxTenantSlugLength is the DNS label limit.
const MaxTenantSlugLength = 63

// CreateTenantInput is the payload for creating a centre.
type CreateTenantInput struct {
	Name           string `json:"name" validate:"required,max=200"`
	Slug           string `json:"slug,omitempty" validate:"omitempty,subdomain"`
	PrimaryDomain  string `json:"primary_domain,omitempty" validate:"omitempty,fqdn"`
	PrimaryColor   string `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	Tier           string `json:"tier,omitempty" validate:"omitempty,oneof=starter growth premium"`
	ContactEmail   string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone   string `json:"contact_phone,omitempty" validate:"max=40"`
}

// UpdateTenantInput patches a centre. Nil fields are left unchanged; an
// empty PrimaryDomain clears it.
type UpdateTenantInput struct {
	Name           *string `json:"name,omitempty"`
	Status         *string `json:"status,omitempty" validate:"omitempty,oneof=active suspended archived"`
	PrimaryDomain  *string `json:"primary_domain,omitempty"`
	PrimaryColor   *string `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor *string `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	Tier           *string `json:"tier,omitempty" validate:"omitempty,oneof=starter growth premium"`
	ContactEmail   *string `json:"contact_email,omitempty"`
	ContactPhone   *string `json:"contact_phone,omitempty" validate:"omitempty,max=40"`
}

// HostCache drops cached hostname resolutions.
type HostCache interface {
	Invalidate(ctx context.Context, hosts ...string) error
	SubdomainHost(slug string) string
}

// LogoStore persists normalised logo images.
type LogoStore interface {
	SaveLogo(tenantID string, r io.Reader) (*imaging.LogoResult, error)
}

// TenantService manages centres and their domain bindings.
type TenantService struct {
	db          *sql.DB
	queries     *store.Queries
	hosts       HostCache
	invalidator publish.Invalidator
	logos       LogoStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewTenantService creates a TenantService. hosts, invalidator and logos may be nil.
func NewTenantService(db *sql.DB, hosts HostCache, invalidator publish.Invalidator, logos LogoStore, logger *slog.Logger) *TenantService {
	if invalidator == nil {
		invalidator = publish.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{
		db:          db,
		queries:     store.New(db),
		hosts:       hosts,
		invalidator: invalidator,
		logos:       logos,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTenant creates an active centre. An empty slug is derived from the
// name. A primary domain is recorded as a pending binding; failing to create
// the binding is logged and does not fail the creation.
func (s *TenantService) CreateTenant(ctx context.Context, in CreateTenantInput) (store.Tenant, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.PrimaryDomain = util.NormalizeHost(in.PrimaryDomain)

	if err := validateInput(in); err != nil {
		return store.Tenant{}, err
	}
	if in.Slug == "" {
		in.Slug = tenantSlug(in.Name)
		if !util.IsValidSubdomainLabel(in.Slug) {
			return store.Tenant{}, fieldError("slug", "is required")
		}
	}

	count, err := s.queries.CountTenantsBySlug(ctx, in.Slug)
	if err != nil {
		return store.Tenant{}, fmt.Errorf("checking slug: %w", err)
	}
	if count > 0 {
		return store.Tenant{}, fmt.Errorf("centre slug %q: %w", in.Slug, ErrConflict)
	}

	now := s.now().UTC()
	t, err := s.queries.CreateTenant(ctx, store.CreateTenantParams{
		ID:             uuid.NewString(),
		Slug:           in.Slug,
		Name:           in.Name,
		Status:         TenantActive,
		PrimaryDomain:  util.NullStringFromValue(in.PrimaryDomain),
		PrimaryColor:   withDefault(in.PrimaryColor, "#2b6cb0"),
		SecondaryColor: withDefault(in.SecondaryColor, "#f6ad55"),
		Tier:           withDefault(in.Tier, "starter"),
		ContactEmail:   in.ContactEmail,
		ContactPhone:   in.ContactPhone,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.Tenant{}, fmt.Errorf("centre slug %q: %w", in.Slug, ErrConflict)
		}
		return store.Tenant{}, fmt.Errorf("creating centre: %w", err)
	}

	if in.PrimaryDomain != "" {
		if _, err := s.upsertBinding(ctx, t.ID, in.PrimaryDomain, true); err != nil {
			s.logger.Warn("primary domain binding failed",
				"tenant_id", t.ID, "hostname", in.PrimaryDomain, "error", err, "category", "tenant")
		}
	}

	s.logger.Info("centre created", "tenant_id", t.ID, "slug", t.Slug)
	return t, nil
}

// ListActiveTenants returns active centres ordered by name.
func (s *TenantService) ListActiveTenants(ctx context.Context) ([]store.Tenant, error) {
	tenants, err := s.queries.ListActiveTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing centres: %w", err)
	}
	if tenants == nil {
		tenants = []store.Tenant{}
	}
	return tenants, nil
}

// GetTenant returns a centre by id regardless of status.
func (s *TenantService) GetTenant(ctx context.Context, id string) (store.Tenant, error) {
	t, err := s.queries.GetTenantByID(ctx, id)
	if err != nil {
		return store.Tenant{}, lookupErr("centre", id, err)
	}
	return t, nil
}

// UpdateTenant patches a centre. Status or domain changes drop cached host
// resolutions; any change drops the centre's rendered pages.
func (s *TenantService) UpdateTenant(ctx context.Context, id string, in UpdateTenantInput) (store.Tenant, error) {
	if err := validateInput(in); err != nil {
		return store.Tenant{}, err
	}

	t, err := s.queries.GetTenantByID(ctx, id)
	if err != nil {
		return store.Tenant{}, lookupErr("centre", id, err)
	}

	params := store.UpdateTenantParams{
		ID:             id,
		Name:           t.Name,
		Status:         t.Status,
		PrimaryDomain:  t.PrimaryDomain,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
		Tier:           t.Tier,
		ContactEmail:   t.ContactEmail,
		ContactPhone:   t.ContactPhone,
		UpdatedAt:      s.now().UTC(),
	}

	fields := blocks.FieldErrors{}
	if in.Name != nil {
		params.Name = strings.TrimSpace(*in.Name)
		if params.Name == "" {
			fields["name"] = "is required"
		}
	}
	if in.Status != nil {
		params.Status = *in.Status
	}
	domainChanged := false
	if in.PrimaryDomain != nil {
		host := util.NormalizeHost(*in.PrimaryDomain)
		if host != "" && validate.Var(host, "fqdn") != nil {
			fields["primary_domain"] = "must be a valid hostname"
		}
		domainChanged = host != t.PrimaryDomain.String
		params.PrimaryDomain = util.NullStringFromValue(host)
	}
	if in.PrimaryColor != nil {
		params.PrimaryColor = *in.PrimaryColor
	}
	if in.SecondaryColor != nil {
		params.SecondaryColor = *in.SecondaryColor
	}
	if in.Tier != nil {
		params.Tier = *in.Tier
	}
	if in.ContactEmail != nil {
		params.ContactEmail = strings.TrimSpace(*in.ContactEmail)
		if params.ContactEmail != "" && validate.Var(params.ContactEmail, "email") != nil {
			fields["contact_email"] = "must be a valid email address"
		}
	}
	if in.ContactPhone != nil {
		params.ContactPhone = strings.TrimSpace(*in.ContactPhone)
	}
	if len(fields) > 0 {
		return store.Tenant{}, &ValidationError{Fields: fields}
	}

	updated, err := s.queries.UpdateTenant(ctx, params)
	if err != nil {
		return store.Tenant{}, fmt.Errorf("updating centre: %w", err)
	}

	if domainChanged && params.PrimaryDomain.Valid {
		if _, err := s.upsertBinding(ctx, id, params.PrimaryDomain.String, true); err != nil {
			s.logger.Warn("primary domain binding failed",
				"tenant_id", id, "hostname", params.PrimaryDomain.String, "error", err, "category", "tenant")
		}
	}
	if updated.Status != t.Status || domainChanged {
		s.invalidateHosts(ctx, updated, t.PrimaryDomain.String)
	}
	s.invalidateTenantPages(ctx, id)

	s.logger.Info("centre updated", "tenant_id", id, "status", updated.Status)
	return updated, nil
}

// ArchiveTenant marks a centre archived. Its sites stop resolving.
func (s *TenantService) ArchiveTenant(ctx context.Context, id string) (store.Tenant, error) {
	status := TenantArchived
	return s.UpdateTenant(ctx, id, UpdateTenantInput{Status: &status})
}

// UploadLogo stores a new logo for the centre and records its public URL.
func (s *TenantService) UploadLogo(ctx context.Context, id string, r io.Reader) (store.Tenant, error) {
	if s.logos == nil {
		return store.Tenant{}, errors.New("logo uploads are not configured")
	}
	if _, err := s.queries.GetTenantByID(ctx, id); err != nil {
		return store.Tenant{}, lookupErr("centre", id, err)
	}

	res, err := s.logos.SaveLogo(id, r)
	if err != nil {
		switch {
		case errors.Is(err, imaging.ErrUnsupportedImage):
			return store.Tenant{}, fieldError("logo", "must be a JPEG, PNG, GIF or WebP image")
		case errors.Is(err, imaging.ErrImageTooLarge):
			return store.Tenant{}, fieldError("logo", "must be at most 5 MB")
		}
		return store.Tenant{}, fmt.Errorf("saving logo: %w", err)
	}

	updated, err := s.queries.UpdateTenantLogo(ctx, store.UpdateTenantLogoParams{
		LogoUrl:   "/uploads/" + res.Path,
		UpdatedAt: s.now().UTC(),
		ID:        id,
	})
	if err != nil {
		return store.Tenant{}, fmt.Errorf("recording logo: %w", err)
	}

	s.invalidateTenantPages(ctx, id)
	s.logger.Info("centre logo updated", "tenant_id", id, "width", res.Width, "height", res.Height)
	return updated, nil
}

// ListDomains returns a centre's domain bindings.
func (s *TenantService) ListDomains(ctx context.Context, tenantID string) ([]store.DomainBinding, error) {
	if _, err := s.queries.GetTenantByID(ctx, tenantID); err != nil {
		return nil, lookupErr("centre", tenantID, err)
	}
	domains, err := s.queries.ListDomainBindingsByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}
	if domains == nil {
		domains = []store.DomainBinding{}
	}
	return domains, nil
}

// AddDomain records a pending (unverified) binding for hostname.
func (s *TenantService) AddDomain(ctx context.Context, tenantID, hostname string, primary bool) (store.DomainBinding, error) {
	host := util.NormalizeHost(hostname)
	if host == "" {
		return store.DomainBinding{}, fieldError("hostname", "is required")
	}
	if validate.Var(host, "fqdn") != nil {
		return store.DomainBinding{}, fieldError("hostname", "must be a valid hostname")
	}
	if _, err := s.queries.GetTenantByID(ctx, tenantID); err != nil {
		return store.DomainBinding{}, lookupErr("centre", tenantID, err)
	}

	token, err := verificationToken()
	if err != nil {
		return store.DomainBinding{}, err
	}
	now := s.now().UTC()
	d, err := s.queries.CreateDomainBinding(ctx, store.CreateDomainBindingParams{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		Hostname:          host,
		IsPrimary:         primary,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.DomainBinding{}, fmt.Errorf("hostname %q: %w", host, ErrConflict)
		}
		return store.DomainBinding{}, fmt.Errorf("creating domain binding: %w", err)
	}

	s.logger.Info("domain binding added", "tenant_id", tenantID, "hostname", host)
	return d, nil
}

// VerifyDomain marks a binding verified so it takes part in resolution.
func (s *TenantService) VerifyDomain(ctx context.Context, id string) (store.DomainBinding, error) {
	now := s.now().UTC()
	d, err := s.queries.VerifyDomainBinding(ctx, store.VerifyDomainBindingParams{
		VerifiedAt: util.NullTimeFromValue(now),
		UpdatedAt:  now,
		ID:         id,
	})
	if err != nil {
		return store.DomainBinding{}, lookupErr("domain", id, err)
	}

	if s.hosts != nil {
		if err := s.hosts.Invalidate(ctx, d.Hostname); err != nil {
			s.logger.Warn("host cache invalidation failed",
				"hostname", d.Hostname, "error", err, "category", "cache")
		}
	}
	s.logger.Info("domain binding verified", "tenant_id", d.TenantID, "hostname", d.Hostname)
	return d, nil
}

// upsertBinding creates or refreshes a pending binding. A hostname bound to
// another centre is a conflict.
func (s *TenantService) upsertBinding(ctx context.Context, tenantID, host string, primary bool) (store.DomainBinding, error) {
	token, err := verificationToken()
	if err != nil {
		return store.DomainBinding{}, err
	}
	now := s.now().UTC()
	d, err := s.queries.UpsertDomainBinding(ctx, store.CreateDomainBindingParams{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		Hostname:          host,
		IsPrimary:         primary,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return store.DomainBinding{}, fmt.Errorf("hostname %q bound to another centre: %w", host, ErrConflict)
	}
	return d, err
}

func (s *TenantService) invalidateHosts(ctx context.Context, t store.Tenant, previousDomain string) {
	if s.hosts == nil {
		return
	}

	hosts := []string{s.hosts.SubdomainHost(t.Slug)}
	if previousDomain != "" {
		hosts = append(hosts, previousDomain)
	}
	bindings, err := s.queries.ListDomainBindingsByTenant(ctx, t.ID)
	if err != nil {
		s.logger.Warn("listing bindings for invalidation failed", "tenant_id", t.ID, "error", err, "category", "cache")
	}
	for _, b := range bindings {
		hosts = append(hosts, b.Hostname)
	}

	if err := s.hosts.Invalidate(ctx, hosts...); err != nil {
		s.logger.Warn("host cache invalidation failed", "tenant_id", t.ID, "error", err, "category", "cache")
	}
}

func (s *TenantService) invalidateTenantPages(ctx context.Context, tenantID string) {
	if err := s.invalidator.InvalidateTenant(ctx, tenantID); err != nil {
		s.logger.Warn("page cache invalidation failed", "tenant_id", tenantID, "error", err, "category", "cache")
	}
}

func tenantSlug(name string) string {
	slug := util.Slugify(name)
	if len(slug) > MaxTenantSlugLength {
		slug = strings.TrimRight(slug[:MaxTenantSlugLength], "-")
	}
	return slug
}

func verificationToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating verification token: %w", err)
	}
	return "ecd-verify-" + hex.EncodeToString(b), nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
