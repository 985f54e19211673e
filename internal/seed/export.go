// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
)

// ExportStore is the subset of store.Queries Export reads.
type ExportStore interface {
	GetTenantBySlug(ctx context.Context, slug string) (store.Tenant, error)
	ListTenants(ctx context.Context) ([]store.Tenant, error)
	ListDomainBindingsByTenant(ctx context.Context, tenantID string) ([]store.DomainBinding, error)
	ListPagesByTenant(ctx context.Context, tenantID string) ([]store.Page, error)
	ListBlocksByPage(ctx context.Context, pageID string) ([]store.Block, error)
	GetActiveMenu(ctx context.Context, tenantID string) (store.NavigationMenu, error)
	GetActiveTheme(ctx context.Context, tenantID string) (store.Theme, error)
}

// Export writes the named centres, or all centres when slugs is empty, into
// a seed File that Apply can load on another instance. Admin users are not
// exported.
func Export(ctx context.Context, s ExportStore, slugs ...string) (*File, error) {
	var tenants []store.Tenant
	if len(slugs) == 0 {
		all, err := s.ListTenants(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing centres: %w", err)
		}
		tenants = all
	}
	for _, slug := range slugs {
		t, err := s.GetTenantBySlug(ctx, slug)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("centre %q: %w", slug, service.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("loading centre %q: %w", slug, err)
		}
		tenants = append(tenants, t)
	}

	f := &File{Centres: make([]Centre, 0, len(tenants))}
	for _, t := range tenants {
		c, err := exportCentre(ctx, s, t)
		if err != nil {
			return nil, fmt.Errorf("centre %s: %w", t.Slug, err)
		}
		f.Centres = append(f.Centres, c)
	}
	return f, nil
}

// Write encodes f as YAML.
func Write(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding seed file: %w", err)
	}
	return enc.Close()
}

func exportCentre(ctx context.Context, s ExportStore, t store.Tenant) (Centre, error) {
	c := Centre{
		Name:           t.Name,
		Slug:           t.Slug,
		PrimaryDomain:  t.PrimaryDomain.String,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
		Tier:           t.Tier,
		ContactEmail:   t.ContactEmail,
		ContactPhone:   t.ContactPhone,
	}

	if c.PrimaryDomain != "" {
		bindings, err := s.ListDomainBindingsByTenant(ctx, t.ID)
		if err != nil {
			return c, fmt.Errorf("listing domains: %w", err)
		}
		for _, b := range bindings {
			if b.Hostname == c.PrimaryDomain && b.VerifiedAt.Valid {
				c.VerifyDomain = true
			}
		}
	}

	pages, err := s.ListPagesByTenant(ctx, t.ID)
	if err != nil {
		return c, fmt.Errorf("listing pages: %w", err)
	}
	for _, p := range pages {
		page, err := exportPage(ctx, s, p)
		if err != nil {
			return c, fmt.Errorf("page %s: %w", p.Slug, err)
		}
		c.Pages = append(c.Pages, page)
	}

	menu, err := s.GetActiveMenu(ctx, t.ID)
	switch {
	case err == nil:
		c.Menu = &Menu{Name: menu.Name}
		for _, it := range service.DecodeMenuItems(menu.Items) {
			c.Menu.Items = append(c.Menu.Items, MenuItem{Label: it.Label, Href: it.Href, Target: it.Target})
		}
	case !errors.Is(err, sql.ErrNoRows):
		return c, fmt.Errorf("loading menu: %w", err)
	}

	theme, err := s.GetActiveTheme(ctx, t.ID)
	switch {
	case err == nil:
		settings := service.DecodeThemeSettings(theme.Settings)
		c.Theme = &Theme{
			Name:            theme.Name,
			PrimaryColor:    settings.PrimaryColor,
			SecondaryColor:  settings.SecondaryColor,
			BackgroundColor: settings.BackgroundColor,
			TextColor:       settings.TextColor,
			FontFamily:      settings.FontFamily,
			Layout:          settings.Layout,
		}
	case !errors.Is(err, sql.ErrNoRows):
		return c, fmt.Errorf("loading theme: %w", err)
	}

	return c, nil
}

func exportPage(ctx context.Context, s ExportStore, p store.Page) (Page, error) {
	page := Page{
		Title:           p.Title,
		Slug:            p.Slug,
		MetaDescription: p.MetaDescription.String,
		Published:       p.IsPublished,
	}

	rows, err := s.ListBlocksByPage(ctx, p.ID)
	if err != nil {
		return page, fmt.Errorf("listing blocks: %w", err)
	}
	for _, b := range rows {
		var props map[string]any
		if err := json.Unmarshal([]byte(b.Props), &props); err != nil {
			return page, fmt.Errorf("decoding %s block props: %w", b.BlockKey, err)
		}
		page.Blocks = append(page.Blocks, Block{Type: b.BlockKey, Props: props})
	}
	return page, nil
}
