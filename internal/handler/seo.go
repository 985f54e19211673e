// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/ecdsites/internal/publish"
	"github.com/olegiv/ecdsites/internal/seo"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/tenant"
)

// PageLister lists a tenant's pages.
type PageLister interface {
	ListPagesByTenant(ctx context.Context, tenantID string) ([]store.Page, error)
}

// SEOHandler serves sitemap.xml and robots.txt per centre.
type SEOHandler struct {
	pages   PageLister
	tenants TenantLookup
	logger  *slog.Logger
}

// NewSEOHandler creates an SEOHandler.
func NewSEOHandler(pages PageLister, tenants TenantLookup, logger *slog.Logger) *SEOHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SEOHandler{pages: pages, tenants: tenants, logger: logger}
}

// Sitemap handles GET /sitemap.xml. Only published pages are listed.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	t := requestTenant(r, h.tenants, h.logger)
	if t == nil {
		http.NotFound(w, r)
		return
	}

	pages, err := h.pages.ListPagesByTenant(r.Context(), t.ID)
	if err != nil {
		logAndInternalError(w, r, h.logger, "listing pages for sitemap", err)
		return
	}

	entries := make([]seo.SitemapPage, 0, len(pages))
	for _, p := range pages {
		if !p.IsPublished {
			continue
		}
		entries = append(entries, seo.SitemapPage{
			Path:      publish.PathForSlug(p.Slug),
			UpdatedAt: p.UpdatedAt,
		})
	}

	body, err := seo.GenerateSitemap(siteURL(r), entries)
	if err != nil {
		logAndInternalError(w, r, h.logger, "building sitemap", err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}

// Robots handles GET /robots.txt. Hosts without a centre are closed to
// crawlers.
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	cfg := seo.RobotsConfig{SiteURL: siteURL(r)}
	if requestTenant(r, h.tenants, h.logger) == nil {
		cfg.DisallowAll = true
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(seo.BuildRobots(cfg)))
}

// requestTenant returns the tenant attached to the request, loading it by
// id when only the id is known.
func requestTenant(r *http.Request, tenants TenantLookup, logger *slog.Logger) *store.Tenant {
	if t := tenant.FromContext(r.Context()); t != nil {
		return t
	}
	id, ok := tenant.IDFromContext(r.Context())
	if !ok || tenants == nil {
		return nil
	}
	t, err := tenants.ResolveByID(r.Context(), id)
	if err != nil {
		logger.Error("loading request tenant", "tenant_id", id, "error", err)
		return nil
	}
	return t
}

// siteURL is the absolute base URL of the requested host.
func siteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + strings.ToLower(r.Host)
}
