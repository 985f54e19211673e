// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seed loads centres, pages, menus, themes and admin users from a
// YAML file. Everything goes through the services, so seeded data obeys the
// same rules as data created through the API.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/ecdsites/internal/service"
)

// File is the top-level structure of a seed file.
type File struct {
	Admins  []service.CreateAdminInput `yaml:"admins"`
	Centres []Centre                   `yaml:"centres"`
}

// Centre describes one centre and its site.
type Centre struct {
	Name           string `yaml:"name"`
	Slug           string `yaml:"slug"`
	PrimaryDomain  string `yaml:"primary_domain"`
	VerifyDomain   bool   `yaml:"verify_domain"`
	PrimaryColor   string `yaml:"primary_color"`
	SecondaryColor string `yaml:"secondary_color"`
	Tier           string `yaml:"tier"`
	ContactEmail   string `yaml:"contact_email"`
	ContactPhone   string `yaml:"contact_phone"`
	Pages          []Page `yaml:"pages"`
	Menu           *Menu  `yaml:"menu"`
	Theme          *Theme `yaml:"theme"`
}

// Page is a page with its blocks in display order.
type Page struct {
	Title           string  `yaml:"title"`
	Slug            string  `yaml:"slug"`
	MetaDescription string  `yaml:"meta_description"`
	Published       bool    `yaml:"published"`
	Blocks          []Block `yaml:"blocks"`
}

// Block is one content block; Props must match the block type's schema.
type Block struct {
	Type  string         `yaml:"type"`
	Props map[string]any `yaml:"props"`
}

// Menu is the centre's active navigation menu.
type Menu struct {
	Name  string     `yaml:"name"`
	Items []MenuItem `yaml:"items"`
}

// MenuItem is one navigation link.
type MenuItem struct {
	Label  string `yaml:"label"`
	Href   string `yaml:"href"`
	Target string `yaml:"target"`
}

// Theme is the centre's active theme.
type Theme struct {
	Name            string `yaml:"name"`
	PrimaryColor    string `yaml:"primary_color"`
	SecondaryColor  string `yaml:"secondary_color"`
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
	FontFamily      string `yaml:"font_family"`
	Layout          string `yaml:"layout"`
}

// LoadFile reads and parses a seed file.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &file, nil
}

// Services are the services a Seeder writes through.
type Services struct {
	Admins  *service.AdminService
	Tenants *service.TenantService
	Pages   *service.PageService
	Menus   *service.MenuService
	Themes  *service.ThemeService
}

// Result counts what Apply created and skipped.
type Result struct {
	Admins         int
	Centres        int
	Pages          int
	SkippedAdmins  int
	SkippedCentres int
}

// Seeder applies seed files.
type Seeder struct {
	svc    Services
	logger *slog.Logger
}

// New creates a Seeder.
func New(svc Services, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{svc: svc, logger: logger}
}

// Apply creates everything in f. Admins and centres that already exist are
// skipped, so a seed file can be applied repeatedly. The first other error
// stops the run; work done before it is kept.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	for _, a := range f.Admins {
		_, err := s.svc.Admins.CreateAdmin(ctx, a)
		switch {
		case errors.Is(err, service.ErrConflict):
			res.SkippedAdmins++
			s.logger.Info("admin already exists, skipping", "email", a.Email)
		case err != nil:
			return res, fmt.Errorf("admin %s: %w", a.Email, err)
		default:
			res.Admins++
		}
	}

	for _, c := range f.Centres {
		pages, created, err := s.applyCentre(ctx, c)
		if err != nil {
			return res, fmt.Errorf("centre %s: %w", c.Name, err)
		}
		if !created {
			res.SkippedCentres++
			continue
		}
		res.Centres++
		res.Pages += pages
	}

	s.logger.Info("seed applied",
		"admins", res.Admins,
		"centres", res.Centres,
		"pages", res.Pages,
		"skipped_centres", res.SkippedCentres,
	)
	return res, nil
}

func (s *Seeder) applyCentre(ctx context.Context, c Centre) (int, bool, error) {
	tenant, err := s.svc.Tenants.CreateTenant(ctx, service.CreateTenantInput{
		Name:           c.Name,
		Slug:           c.Slug,
		PrimaryDomain:  c.PrimaryDomain,
		PrimaryColor:   c.PrimaryColor,
		SecondaryColor: c.SecondaryColor,
		Tier:           c.Tier,
		ContactEmail:   c.ContactEmail,
		ContactPhone:   c.ContactPhone,
	})
	if errors.Is(err, service.ErrConflict) {
		s.logger.Info("centre already exists, skipping", "name", c.Name, "slug", c.Slug)
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if c.PrimaryDomain != "" && c.VerifyDomain {
		if err := s.verifyDomains(ctx, tenant.ID); err != nil {
			return 0, true, err
		}
	}

	for _, p := range c.Pages {
		if err := s.applyPage(ctx, tenant.ID, p); err != nil {
			return 0, true, fmt.Errorf("page %q: %w", p.Title, err)
		}
	}

	if c.Menu != nil {
		items := make([]service.MenuItem, 0, len(c.Menu.Items))
		for _, it := range c.Menu.Items {
			items = append(items, service.MenuItem{Label: it.Label, Href: it.Href, Target: it.Target})
		}
		if _, err := s.svc.Menus.CreateMenu(ctx, tenant.ID, service.CreateMenuInput{
			Name:     c.Menu.Name,
			Items:    items,
			Activate: true,
		}); err != nil {
			return 0, true, fmt.Errorf("menu: %w", err)
		}
	}

	if c.Theme != nil {
		if _, err := s.svc.Themes.CreateTheme(ctx, tenant.ID, service.CreateThemeInput{
			Name: c.Theme.Name,
			Settings: service.ThemeSettings{
				PrimaryColor:    c.Theme.PrimaryColor,
				SecondaryColor:  c.Theme.SecondaryColor,
				BackgroundColor: c.Theme.BackgroundColor,
				TextColor:       c.Theme.TextColor,
				FontFamily:      c.Theme.FontFamily,
				Layout:          c.Theme.Layout,
			},
			Activate: true,
		}); err != nil {
			return 0, true, fmt.Errorf("theme: %w", err)
		}
	}

	s.logger.Info("seeded centre", "tenant_id", tenant.ID, "slug", tenant.Slug, "pages", len(c.Pages))
	return len(c.Pages), true, nil
}

func (s *Seeder) verifyDomains(ctx context.Context, tenantID string) error {
	bindings, err := s.svc.Tenants.ListDomains(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		if b.VerifiedAt.Valid {
			continue
		}
		if _, err := s.svc.Tenants.VerifyDomain(ctx, b.ID); err != nil {
			return fmt.Errorf("verifying %s: %w", b.Hostname, err)
		}
	}
	return nil
}

func (s *Seeder) applyPage(ctx context.Context, tenantID string, p Page) error {
	page, err := s.svc.Pages.CreatePage(ctx, service.CreatePageInput{
		TenantID:        tenantID,
		Title:           p.Title,
		Slug:            p.Slug,
		MetaDescription: p.MetaDescription,
	})
	if err != nil {
		return err
	}

	if len(p.Blocks) > 0 {
		blocks := make([]service.BlockInput, 0, len(p.Blocks))
		for _, b := range p.Blocks {
			props, err := marshalProps(b.Props)
			if err != nil {
				return fmt.Errorf("block %s: %w", b.Type, err)
			}
			blocks = append(blocks, service.BlockInput{BlockKey: b.Type, Props: props})
		}
		if _, err := s.svc.Pages.SavePage(ctx, page.ID, service.SavePageInput{Blocks: &blocks}); err != nil {
			return err
		}
	}

	if p.Published {
		if _, err := s.svc.Pages.SetPublished(ctx, page.ID, true); err != nil {
			return err
		}
	}
	return nil
}

// marshalProps converts YAML props to JSON. A missing props key becomes {}.
func marshalProps(props map[string]any) (json.RawMessage, error) {
	if props == nil {
		return json.RawMessage(`{}`), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(props); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}
