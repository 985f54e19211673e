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

// MenuItem is one navigation link.
type MenuItem struct {
	Label  string `json:"label" validate:"required,max=80"`
	Href   string `json:"href" validate:"required,max=500"`
	Target string `json:"target,omitempty" validate:"omitempty,oneof=_self _blank"`
}

// CreateMenuInput is the payload for creating a navigation menu.
type CreateMenuInput struct {
	Name     string     `json:"name" validate:"required,max=100"`
	Items    []MenuItem `json:"items" validate:"max=30,dive"`
	Activate bool       `json:"activate,omitempty"`
}

// Menu is a navigation menu with decoded items.
type Menu struct {
	store.NavigationMenu
	Links []MenuItem
}

// MenuService manages navigation menus. A tenant has at most one active menu.
type MenuService struct {
	db          *sql.DB
	queries     *store.Queries
	invalidator publish.Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewMenuService creates a MenuService. invalidator may be nil.
func NewMenuService(db *sql.DB, invalidator publish.Invalidator, logger *slog.Logger) *MenuService {
	if invalidator == nil {
		invalidator = publish.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuService{
		db:          db,
		queries:     store.New(db),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateMenu creates a menu, optionally activating it.
func (s *MenuService) CreateMenu(ctx context.Context, tenantID string, in CreateMenuInput) (Menu, error) {
	in.Name = strings.TrimSpace(in.Name)
	for i := range in.Items {
		in.Items[i].Label = strings.TrimSpace(in.Items[i].Label)
		in.Items[i].Href = strings.TrimSpace(in.Items[i].Href)
	}
	if err := validateInput(in); err != nil {
		return Menu{}, err
	}
	if _, err := s.queries.GetTenantByID(ctx, tenantID); err != nil {
		return Menu{}, lookupErr("centre", tenantID, err)
	}

	if in.Items == nil {
		in.Items = []MenuItem{}
	}
	items, err := json.Marshal(in.Items)
	if err != nil {
		return Menu{}, fmt.Errorf("encoding menu items: %w", err)
	}

	now := s.now().UTC()
	m, err := s.queries.CreateMenu(ctx, store.CreateMenuParams{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      in.Name,
		Items:     string(items),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Menu{}, fmt.Errorf("creating menu: %w", err)
	}

	if in.Activate {
		return s.ActivateMenu(ctx, m.ID)
	}
	return decodeMenu(m), nil
}

// ListMenus returns a tenant's menus.
func (s *MenuService) ListMenus(ctx context.Context, tenantID string) ([]Menu, error) {
	if _, err := s.queries.GetTenantByID(ctx, tenantID); err != nil {
		return nil, lookupErr("centre", tenantID, err)
	}
	rows, err := s.queries.ListMenusByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing menus: %w", err)
	}
	menus := make([]Menu, 0, len(rows))
	for _, m := range rows {
		menus = append(menus, decodeMenu(m))
	}
	return menus, nil
}

// GetActiveMenu returns the tenant's active menu, or nil when none is active.
func (s *MenuService) GetActiveMenu(ctx context.Context, tenantID string) (*Menu, error) {
	m, err := s.queries.GetActiveMenu(ctx, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active menu: %w", err)
	}
	menu := decodeMenu(m)
	return &menu, nil
}

// ActivateMenu makes id the tenant's only active menu. Siblings are
// deactivated in the same transaction. The active menu is returned
// unchanged, without a write or cache invalidation.
func (s *MenuService) ActivateMenu(ctx context.Context, id string) (Menu, error) {
	m, err := s.queries.GetMenu(ctx, id)
	if err != nil {
		return Menu{}, lookupErr("menu", id, err)
	}
	if m.IsActive {
		return decodeMenu(m), nil
	}

	now := s.now().UTC()
	var activated store.NavigationMenu
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.DeactivateMenus(ctx, store.DeactivateMenusParams{
			UpdatedAt: now,
			TenantID:  m.TenantID,
			KeepID:    id,
		}); err != nil {
			return fmt.Errorf("deactivating menus: %w", err)
		}
		var err error
		activated, err = q.ActivateMenu(ctx, store.ActivateMenuParams{UpdatedAt: now, ID: id})
		if err != nil {
			return fmt.Errorf("activating menu: %w", err)
		}
		return nil
	})
	if err != nil {
		return Menu{}, err
	}

	if err := s.invalidator.InvalidateTenant(ctx, m.TenantID); err != nil {
		s.logger.Warn("page cache invalidation failed", "tenant_id", m.TenantID, "error", err, "category", "cache")
	}
	return decodeMenu(activated), nil
}

// DecodeMenuItems parses stored menu items. Malformed JSON yields no items.
func DecodeMenuItems(raw string) []MenuItem {
	var items []MenuItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []MenuItem{}
	}
	if items == nil {
		items = []MenuItem{}
	}
	return items
}

func decodeMenu(m store.NavigationMenu) Menu {
	return Menu{NavigationMenu: m, Links: DecodeMenuItems(m.Items)}
}
