// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/cache"
	"github.com/olegiv/ecdsites/internal/middleware"
	"github.com/olegiv/ecdsites/internal/publish"
	"github.com/olegiv/ecdsites/internal/render"
	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/tenant"
	"github.com/olegiv/ecdsites/internal/testutil"
	"github.com/olegiv/ecdsites/web"
)

const testSitesDomain = "sites.test"

// site wires the public site the way the server does, minus the admin API.
type site struct {
	db       *sql.DB
	pages    *service.PageService
	regs     *service.RegistrationService
	sessions *scs.SessionManager
	views    *render.Renderer
	router   http.Handler
}

func newSite(t *testing.T) *site {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	logger := testutil.TestLoggerSilent()
	registry := blocks.NewDefaultRegistry(logger)

	sub, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)

	sessions := scs.New()
	sessions.Store = memstore.New()

	views, err := render.New(render.Config{TemplatesFS: sub, SessionManager: sessions})
	require.NoError(t, err)

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	rc := cache.NewRenderCache(mem, time.Minute)
	inv := publish.NewCacheInvalidator(rc, nil)

	resolver := tenant.NewResolver(store.New(db), cache.NewSimpleMemoryCache(time.Minute),
		tenant.Options{SitesDomain: testSitesDomain, Logger: logger})

	pageRenderer := render.NewPageRenderer(store.New(db), registry, views, render.PageRendererOptions{Cache: rc, Logger: logger})
	frontend := NewFrontendHandler(pageRenderer, resolver, logger)
	regs := service.NewRegistrationService(db, nil, logger)
	registration := NewRegistrationHandler(regs, nil, logger)

	r := chi.NewRouter()
	r.Use(sessions.LoadAndSave)
	r.Use(middleware.TenantContext(middleware.TenantConfig{
		Resolver: resolver,
		Sessions: sessions,
		Logger:   logger,
	}))
	seoHandler := NewSEOHandler(store.New(db), resolver, logger)
	r.Get(RouteSitemap, seoHandler.Sitemap)
	r.Get(RouteRobots, seoHandler.Robots)
	r.Post(RouteRegister, registration.Submit)
	r.Get(RouteRoot, frontend.Home)
	r.Get(RouteSlug, frontend.Page)
	r.NotFound(frontend.NotFound)

	return &site{
		db:       db,
		pages:    service.NewPageService(db, registry, inv, logger),
		regs:     regs,
		sessions: sessions,
		views:    views,
		router:   r,
	}
}

func (s *site) get(t *testing.T, host, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *site) post(t *testing.T, host, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Host = host
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func subdomain(slug string) string {
	return slug + "." + testSitesDomain
}
