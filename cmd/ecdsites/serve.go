// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/cache"
	"github.com/olegiv/ecdsites/internal/config"
	"github.com/olegiv/ecdsites/internal/geoip"
	"github.com/olegiv/ecdsites/internal/handler"
	"github.com/olegiv/ecdsites/internal/handler/api"
	"github.com/olegiv/ecdsites/internal/imaging"
	"github.com/olegiv/ecdsites/internal/metrics"
	"github.com/olegiv/ecdsites/internal/middleware"
	"github.com/olegiv/ecdsites/internal/publish"
	"github.com/olegiv/ecdsites/internal/render"
	"github.com/olegiv/ecdsites/internal/scheduler"
	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/session"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/tenant"
	"github.com/olegiv/ecdsites/internal/webhook"
	"github.com/olegiv/ecdsites/web"
)

const (
	shutdownTimeout   = 30 * time.Second
	revalidateTimeout = 5 * time.Second
	uploadsMaxAge     = 30 * 24 * time.Hour
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

// routerDeps is everything newRouter mounts.
type routerDeps struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *metrics.Metrics
	sessions     *scs.SessionManager
	resolver     *tenant.Resolver
	admins       middleware.AdminLoader
	api          *api.Handler
	frontend     *handler.FrontendHandler
	registration *handler.RegistrationHandler
	auth         *handler.AuthHandler
	admin        *handler.AdminHandler
	health       *handler.HealthHandler
	seo          *handler.SEOHandler
}

func serve(ctx context.Context, a *app) error {
	cfg, db, logger := a.cfg, a.db, a.logger

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		logger.Warn("failed to set GOMAXPROCS", "error", err)
	}

	if cfg.AdminTestMode {
		logger.Warn("admin test mode enabled: admin API accepts requests without a token", "category", "security")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	queries := store.New(db)

	hostCache := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix + "host:",
		DefaultTTL: cfg.TenantCacheTTL,
	}, logger)
	defer func() { _ = hostCache.Close() }()

	pageCache := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix + "page:",
		DefaultTTL: cfg.RenderCacheTTL,
	}, logger)
	defer func() { _ = pageCache.Close() }()
	renderCache := cache.NewRenderCache(pageCache, cfg.RenderCacheTTL)

	resolver := tenant.NewResolver(queries, hostCache, tenant.Options{
		SitesDomain: cfg.SitesDomain,
		CacheTTL:    cfg.TenantCacheTTL,
		Logger:      logger,
		Metrics:     m,
	})

	invalidators := publish.Multi{publish.NewCacheInvalidator(renderCache, m)}
	if cfg.RevalidateHookURL != "" {
		invalidators = append(invalidators, publish.NewHookInvalidator(cfg.RevalidateHookURL, revalidateTimeout, cfg.OutboundAllowPrivate))
		logger.Info("revalidation hook enabled", "url", cfg.RevalidateHookURL)
	}

	dispatcherCfg := webhook.DefaultConfig()
	dispatcherCfg.URL = cfg.PartnerSyncURL
	dispatcherCfg.Secret = cfg.PartnerSyncSecret
	dispatcherCfg.AllowPrivate = cfg.OutboundAllowPrivate
	dispatcher := webhook.NewDispatcher(db, logger, m, dispatcherCfg)
	if cfg.PartnerSyncEnabled() {
		logger.Info("partner sync enabled", "url", cfg.PartnerSyncURL)
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn("geoip database unavailable, registrations will not record a country",
			"path", cfg.GeoIPDBPath, "error", err)
	}
	defer func() { _ = geo.Close() }()

	registry := blocks.NewDefaultRegistry(logger)
	tenants := service.NewTenantService(db, resolver, invalidators, imaging.NewProcessor(cfg.UploadsDir), logger)
	pages := service.NewPageService(db, registry, invalidators, logger)
	menus := service.NewMenuService(db, invalidators, logger)
	themes := service.NewThemeService(db, invalidators, logger)
	registrations := service.NewRegistrationService(db, dispatcher, logger)
	events := service.NewEventService(db)

	sched := scheduler.New(logger)
	if err := scheduler.RegisterMaintenance(sched, scheduler.Maintenance{
		Sync:           dispatcher,
		Events:         events,
		EventRetention: scheduler.DefaultEventRetention,
		GeoIP:          geo,
		Logger:         logger,
	}); err != nil {
		return fmt.Errorf("registering maintenance jobs: %w", err)
	}

	sessions := session.New(db, session.DefaultOptions(cfg.IsProduction()))

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	views, err := render.New(render.Config{TemplatesFS: templatesFS, SessionManager: sessions})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	pageRenderer := render.NewPageRenderer(queries, registry, views, render.PageRendererOptions{
		Cache:   renderCache,
		Metrics: m,
		Logger:  logger,
	})

	loginProtection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{Logger: logger})

	router := newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		sessions: sessions,
		resolver: resolver,
		admins:   queries,
		api: api.NewHandler(api.Services{
			Tenants:       tenants,
			Pages:         pages,
			Menus:         menus,
			Themes:        themes,
			Registrations: registrations,
			Jobs:          sched.Registry(),
		}, registry, logger),
		frontend:     handler.NewFrontendHandler(pageRenderer, resolver, logger),
		registration: handler.NewRegistrationHandler(registrations, geo, logger),
		auth:         handler.NewAuthHandler(db, views, sessions, loginProtection, logger),
		admin:        handler.NewAdminHandler(tenants, events, views, logger),
		health:       handler.NewHealthHandler(db, cfg.UploadsDir),
		seo:          handler.NewSEOHandler(queries, resolver, logger),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	dispatcher.Start(ctx)
	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "sites_domain", cfg.SitesDomain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		sched.Stop(shutdownCtx)
		dispatcher.Stop()
		if err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.cfg

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(d.metrics.Middleware)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.StripTrailingSlash)
	r.Use(d.sessions.LoadAndSave)
	r.Use(middleware.TenantContext(middleware.TenantConfig{
		Resolver:      d.resolver,
		Sessions:      d.sessions,
		DevHosts:      devHosts(cfg),
		DevTenantID:   cfg.DevTenantID,
		PlatformHosts: cfg.PlatformHosts,
		Logger:        d.logger,
	}))

	r.Get(handler.RouteHealth, d.health.Health)
	r.Handle("/metrics", d.metrics.Handler())

	uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
	r.With(middleware.StaticCache(uploadsMaxAge, true)).Handle("/uploads/*", uploads)

	apiLimiter := middleware.NewRateLimiter(10, 20, d.logger)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AdminToken(middleware.AdminTokenConfig{
			Token:    cfg.AdminToken,
			TestMode: cfg.AdminTestMode,
			Logger:   d.logger,
		}))
		r.Use(apiLimiter.Middleware())
		d.api.Routes(r)
	})

	loginLimiter := middleware.NewRateLimiter(0.5, 5, d.logger)
	csrfKey := []byte(cfg.SessionSecret)[:config.MinSessionSecretLength]
	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(middleware.NewCSRFConfig(csrfKey, cfg.PlatformHosts, cfg.DevHosts, cfg.ServerPort, cfg.IsDevelopment())))
		r.Use(loginLimiter.HTMLMiddleware())
		r.Get(handler.RouteLogin, d.auth.LoginForm)
		r.Post(handler.RouteLogin, d.auth.Login)
		r.Post(handler.RouteLogout, d.auth.Logout)
	})

	r.With(middleware.LoadAdmin(d.sessions, d.admins)).Get(handler.RouteAdmin, d.admin.Dashboard)

	registerLimiter := middleware.NewRateLimiter(0.2, 5, d.logger)
	r.With(registerLimiter.HTMLMiddleware()).Post(handler.RouteRegister, d.registration.Submit)

	r.Get(handler.RouteSitemap, d.seo.Sitemap)
	r.Get(handler.RouteRobots, d.seo.Robots)
	r.Get(handler.RouteRoot, d.frontend.Home)
	r.Get(handler.RouteSlug, d.frontend.Page)
	r.NotFound(d.frontend.NotFound)

	return r
}

// devHosts returns the development hosts, or none outside development.
func devHosts(cfg *config.Config) []string {
	if !cfg.IsDevelopment() {
		return nil
	}
	return cfg.DevHosts
}
