// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ecdsites/internal/publish"
	"github.com/olegiv/ecdsites/internal/store"
)

// ThemeSettings controls the look of a centre's site.
type ThemeSettings struct {
	PrimaryColor    string `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor  string `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	BackgroundColor string `json:"background_color,omitempty" validate:"omitempty,hexcolor"`
	TextColor       string `json:"text_color,omitempty" validate:"omitempty,hexcolor"`
	FontFamily      string `json:"font_family,omitempty" validate:"omitempty,oneof=system serif rounded"`
	Layout          string `json:"layout,omitempty" validate:"omitempty,oneof=classic centered wide"`
}

// DefaultThemeSettings is used when a tenant has no active theme.
func DefaultThemeSettings() ThemeSettings {
	return ThemeSettings{
		BackgroundColor: "#ffffff",
		TextColor:       "#1a202c",
		FontFamily:      "system",
		Layout:          "classic",
	}
}

// CreateThemeInput is the payload for creating a theme.
type CreateThemeInput struct {
	Name     string        `json:"name" validate:"required,max=100"`
	Settings ThemeSettings `json:"settings"`
	Activate bool          `json:"activate,omitempty"`
}

// Theme is a stored theme with decoded settings.
type Theme struct {
	store.Theme
	Values ThemeSettings
}

// ThemeService manages themes. A tenant has at most one active theme.
type ThemeService struct {
	db          *sql.DB
	queries     *store.Queries
	invalidator publish.Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewThemeService creates a ThemeService. invalidator may be nil.
func NewThemeService(db *sql.DB, invalidator publish.Invalidator, logger *slog.Logger) *ThemeService {
	if invalidator == nil {
		invalidator = publish.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ThemeService{
		db:          db,
		queries:     store.New(db),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTheme creates a theme, optionally activating it.
func (s *ThemeService) CreateTheme(ctx context.Context, tenantID string, in CreateThemeInput) (Theme, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return Theme{}, err
	}
	if _, err := s.queries.GetTenantByID(ctx, tenantID); err != nil {
		return Theme{}, lookupErr("centre", tenantID, err)
	}

	settings, err := json.Marshal(in.Settings)
	if err != nil {
		return Theme{}, fmt.Errorf("encoding theme settings: %w", err)
	}

	now := s.now().UTC()
	t, err := s.queries.CreateTheme(ctx, store.CreateThemeParams{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      in.Name,
		Settings:  string(settings),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Theme{}, fmt.Errorf("creating theme: %w", err)
	}

	if in.Activate {
		return s.ActivateTheme(ctx, t.ID)
	}
	return decodeTheme(t), nil
}

// ListThemes returns a tenant's themes.
func (s *ThemeService) ListThemes(ctx context.Context, tenantID string) ([]Theme, error) {
	if _, err := s.queries.GetTenantByID(ctx, tenantID); err != nil {
		return nil, lookupErr("centre", tenantID, err)
	}
	rows, err := s.queries.ListThemesByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	themes := make([]Theme, 0, len(rows))
	for _, t := range rows {
		themes = append(themes, decodeTheme(t))
	}
	return themes, nil
}

// GetActiveTheme returns the tenant's active theme, or nil when none is active.
func (s *ThemeService) GetActiveTheme(ctx context.Context, tenantID string) (*Theme, error) {
	t, err := s.queries.GetActiveTheme(ctx, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active theme: %w", err)
	}
	theme := decodeTheme(t)
	return &theme, nil
}

// ActivateTheme makes id the tenant's only active theme. Siblings are
// deactivated in the same transaction. The active theme is returned
// unchanged, without a write or cache invalidation.
func (s *ThemeService) ActivateTheme(ctx context.Context, id string) (Theme, error) {
	t, err := s.queries.GetTheme(ctx, id)
	if err != nil {
		return Theme{}, lookupErr("theme", id, err)
	}
	if t.IsActive {
		return decodeTheme(t), nil
	}

	now := s.now().UTC()
	var activated store.Theme
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.DeactivateThemes(ctx, store.DeactivateThemesParams{
			UpdatedAt: now,
			TenantID:  t.TenantID,
			KeepID:    id,
		}); err != nil {
			return fmt.Errorf("deactivating themes: %w", err)
		}
		var err error
		activated, err = q.ActivateTheme(ctx, store.ActivateThemeParams{UpdatedAt: now, ID: id})
		if err != nil {
			return fmt.Errorf("activating theme: %w", err)
		}
		return nil
	})
	if err != nil {
		return Theme{}, err
	}

	if err := s.invalidator.InvalidateTenant(ctx, t.TenantID); err != nil {
		s.logger.Warn("page cache invalidation failed", "tenant_id", t.TenantID, "error", err, "category", "cache")
	}
	return decodeTheme(activated), nil
}

// DecodeThemeSettings parses stored settings over the defaults.
func DecodeThemeSettings(raw string) ThemeSettings {
	settings := DefaultThemeSettings()
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &settings)
	}
	return settings
}

func decodeTheme(t store.Theme) Theme {
	return Theme{Theme: t, Values: DecodeThemeSettings(t.Settings)}
}
