// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"time"

	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/util"
)

// CentreResponse represents a centre in API responses.
type CentreResponse struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	PrimaryDomain  string    `json:"primary_domain,omitempty"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	LogoURL        string    `json:"logo_url,omitempty"`
	Tier           string    `json:"tier"`
	ContactEmail   string    `json:"contact_email,omitempty"`
	ContactPhone   string    `json:"contact_phone,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func centreToResponse(t store.Tenant) CentreResponse {
	return CentreResponse{
		ID:             t.ID,
		Slug:           t.Slug,
		Name:           t.Name,
		Status:         t.Status,
		PrimaryDomain:  t.PrimaryDomain.String,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
		LogoURL:        t.LogoUrl,
		Tier:           t.Tier,
		ContactEmail:   t.ContactEmail,
		ContactPhone:   t.ContactPhone,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// DomainResponse represents a domain binding in API responses.
type DomainResponse struct {
	ID                string     `json:"id"`
	CentreID          string     `json:"centre_id"`
	Hostname          string     `json:"hostname"`
	IsPrimary         bool       `json:"is_primary"`
	VerificationToken string     `json:"verification_token"`
	Verified          bool       `json:"verified"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func domainToResponse(d store.DomainBinding) DomainResponse {
	return DomainResponse{
		ID:                d.ID,
		CentreID:          d.TenantID,
		Hostname:          d.Hostname,
		IsPrimary:         d.IsPrimary,
		VerificationToken: d.VerificationToken,
		Verified:          d.VerifiedAt.Valid,
		VerifiedAt:        util.TimePtr(d.VerifiedAt),
		CreatedAt:         d.CreatedAt,
	}
}

// PageResponse represents a page in API responses.
type PageResponse struct {
	ID              string     `json:"id"`
	CentreID        string     `json:"centre_id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	MetaDescription string     `json:"meta_description,omitempty"`
	IsPublished     bool       `json:"is_published"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PageDetailResponse is a page with its ordered blocks.
type PageDetailResponse struct {
	PageResponse
	Blocks []BlockResponse `json:"blocks"`
}

// BlockResponse represents a stored block.
type BlockResponse struct {
	ID       string          `json:"id"`
	BlockKey string          `json:"block_key"`
	Position int64           `json:"position"`
	Props    json.RawMessage `json:"props"`
}

func pageToResponse(p store.Page) PageResponse {
	return PageResponse{
		ID:              p.ID,
		CentreID:        p.TenantID,
		Title:           p.Title,
		Slug:            p.Slug,
		MetaDescription: p.MetaDescription.String,
		IsPublished:     p.IsPublished,
		PublishedAt:     util.TimePtr(p.PublishedAt),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func pageDetailToResponse(p service.PageWithBlocks) PageDetailResponse {
	resp := PageDetailResponse{
		PageResponse: pageToResponse(p.Page),
		Blocks:       make([]BlockResponse, 0, len(p.Blocks)),
	}
	for _, b := range p.Blocks {
		props := json.RawMessage(b.Props)
		if !json.Valid(props) {
			props = json.RawMessage("{}")
		}
		resp.Blocks = append(resp.Blocks, BlockResponse{
			ID:       b.ID,
			BlockKey: b.BlockKey,
			Position: b.Position,
			Props:    props,
		})
	}
	return resp
}

// MenuResponse represents a navigation menu.
type MenuResponse struct {
	ID        string             `json:"id"`
	CentreID  string             `json:"centre_id"`
	Name      string             `json:"name"`
	Items     []service.MenuItem `json:"items"`
	IsActive  bool               `json:"is_active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func menuToResponse(m service.Menu) MenuResponse {
	items := m.Links
	if items == nil {
		items = []service.MenuItem{}
	}
	return MenuResponse{
		ID:        m.ID,
		CentreID:  m.TenantID,
		Name:      m.Name,
		Items:     items,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ThemeResponse represents a theme.
type ThemeResponse struct {
	ID        string                `json:"id"`
	CentreID  string                `json:"centre_id"`
	Name      string                `json:"name"`
	Settings  service.ThemeSettings `json:"settings"`
	IsActive  bool                  `json:"is_active"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func themeToResponse(t service.Theme) ThemeResponse {
	return ThemeResponse{
		ID:        t.ID,
		CentreID:  t.TenantID,
		Name:      t.Name,
		Settings:  t.Values,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// RegistrationResponse represents a registration request.
type RegistrationResponse struct {
	ID                string     `json:"id"`
	CentreID          string     `json:"centre_id"`
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
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RegistrationToResponse converts a stored registration for API output.
func RegistrationToResponse(r store.RegistrationRequest) RegistrationResponse {
	resp := RegistrationResponse{
		ID:                r.ID,
		CentreID:          r.TenantID,
		GuardianName:      r.GuardianName,
		GuardianEmail:     r.GuardianEmail,
		GuardianPhone:     r.GuardianPhone,
		ChildName:         r.ChildName,
		ChildBirthDate:    r.ChildBirthDate.Format(time.DateOnly),
		Notes:             r.Notes,
		Status:            r.Status,
		PaymentReference:  r.PaymentReference,
		PaymentVerified:   r.PaymentVerified,
		PaymentVerifiedAt: util.TimePtr(r.PaymentVerifiedAt),
		SubmittedCountry:  r.SubmittedCountry,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.PreferredStart.Valid {
		resp.PreferredStart = r.PreferredStart.Time.Format(time.DateOnly)
	}
	return resp
}
