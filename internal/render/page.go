// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/cache"
	"github.com/olegiv/ecdsites/internal/metrics"
	"github.com/olegiv/ecdsites/internal/publish"
	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
)

// ErrNotFound is returned when the tenant has no published page at a slug.
var ErrNotFound = errors.New("page not found")

// PageStore is the subset of store.Queries the page renderer reads.
type PageStore interface {
	GetPublishedPageBySlug(ctx context.Context, arg store.GetPublishedPageBySlugParams) (store.Page, error)
	ListBlocksByPage(ctx context.Context, pageID string) ([]store.Block, error)
	GetActiveMenu(ctx context.Context, tenantID string) (store.NavigationMenu, error)
	GetActiveTheme(ctx context.Context, tenantID string) (store.Theme, error)
}

// PageRenderer renders published pages inside the centre's site chrome.
type PageRenderer struct {
	store    PageStore
	registry *blocks.Registry
	views    *Renderer
	cache    *cache.RenderCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// PageRendererOptions configures a PageRenderer. Cache and Metrics may be nil.
type PageRendererOptions struct {
	Cache   *cache.RenderCache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewPageRenderer creates a PageRenderer. views must contain "site/page"
// and "site/notfound".
func NewPageRenderer(s PageStore, registry *blocks.Registry, views *Renderer, opts PageRendererOptions) *PageRenderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PageRenderer{
		store:    s,
		registry: registry,
		views:    views,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Colors are CSS colour values for the site chrome.
type Colors struct {
	Primary    template.CSS
	Secondary  template.CSS
	Background template.CSS
	Text       template.CSS
}

// SiteView is the data for the site/page template.
type SiteView struct {
	Centre          store.Tenant
	Title           string
	MetaDescription string
	Blocks          []template.HTML
	Menu            []service.MenuItem
	Colors          Colors
	FontStack       template.CSS
	Layout          string
	Year            int
}

// Render returns the HTML of the tenant's published page at slug. An empty
// slug renders the home page. Results are cached per tenant and path.
func (p *PageRenderer) Render(ctx context.Context, t *store.Tenant, slug string) ([]byte, error) {
	if slug == "" {
		slug = publish.HomeSlug
	}
	path := publish.PathForSlug(slug)

	if p.cache != nil {
		body, ok, err := p.cache.Get(ctx, t.ID, path)
		if err != nil {
			p.logger.Warn("render cache read failed", "tenant_id", t.ID, "path", path, "error", err, "category", "cache")
		}
		if ok {
			p.metrics.PageRender(metrics.ResultHit)
			return body, nil
		}
	}

	body, err := p.render(ctx, t, slug)
	switch {
	case errors.Is(err, ErrNotFound):
		p.metrics.PageRender(metrics.ResultNotFound)
		return nil, err
	case err != nil:
		p.metrics.PageRender(metrics.ResultError)
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, t.ID, path, body); err != nil {
			p.logger.Warn("render cache write failed", "tenant_id", t.ID, "path", path, "error", err, "category", "cache")
		}
	}
	p.metrics.PageRender(metrics.ResultMiss)
	return body, nil
}

func (p *PageRenderer) render(ctx context.Context, t *store.Tenant, slug string) ([]byte, error) {
	page, err := p.store.GetPublishedPageBySlug(ctx, store.GetPublishedPageBySlugParams{
		TenantID: t.ID,
		Slug:     slug,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading page %q: %w", slug, err)
	}

	var (
		blockRows []store.Block
		menu      []service.MenuItem
		settings  = service.DefaultThemeSettings()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := p.store.ListBlocksByPage(gctx, page.ID)
		if err != nil {
			return fmt.Errorf("loading blocks: %w", err)
		}
		blockRows = rows
		return nil
	})
	g.Go(func() error {
		m, err := p.store.GetActiveMenu(gctx, t.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil
		case err != nil:
			return fmt.Errorf("loading menu: %w", err)
		}
		menu = service.DecodeMenuItems(m.Items)
		return nil
	})
	g.Go(func() error {
		th, err := p.store.GetActiveTheme(gctx, t.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil
		case err != nil:
			return fmt.Errorf("loading theme: %w", err)
		}
		settings = service.DecodeThemeSettings(th.Settings)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rendered := make([]template.HTML, 0, len(blockRows))
	for _, b := range blockRows {
		out, ok := p.registry.Render(b.BlockKey, []byte(b.Props))
		if !ok {
			p.logger.Warn("block skipped", "tenant_id", t.ID, "page_id", page.ID, "block_id", b.ID, "block_key", b.BlockKey, "category", "page")
			continue
		}
		rendered = append(rendered, out)
	}

	view := SiteView{
		Centre:          *t,
		Title:           page.Title,
		MetaDescription: page.MetaDescription.String,
		Blocks:          rendered,
		Menu:            menu,
		Colors: Colors{
			Primary:    color(settings.PrimaryColor, t.PrimaryColor, "#2b6cb0"),
			Secondary:  color(settings.SecondaryColor, t.SecondaryColor, "#f6ad55"),
			Background: color(settings.BackgroundColor, "#ffffff"),
			Text:       color(settings.TextColor, "#1a202c"),
		},
		FontStack: fontStack(settings.FontFamily),
		Layout:    settings.Layout,
		Year:      p.now().Year(),
	}

	return p.views.Execute("site/page", "site", view)
}

// NotFound renders the tenant's 404 page. t may be nil.
func (p *PageRenderer) NotFound(t *store.Tenant) ([]byte, error) {
	return p.views.Execute("site/notfound", "site", struct{ Centre *store.Tenant }{t})
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// color returns the first valid hex colour among candidates.
func color(candidates ...string) template.CSS {
	for _, c := range candidates {
		if hexColor.MatchString(c) {
			return template.CSS(c)
		}
	}
	return "inherit"
}

func fontStack(family string) template.CSS {
	switch family {
	case "serif":
		return `Georgia, "Times New Roman", serif`
	case "rounded":
		return `"Nunito", "Varela Round", system-ui, sans-serif`
	default:
		return `system-ui, -apple-system, "Segoe UI", Roboto, sans-serif`
	}
}
