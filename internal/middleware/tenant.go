// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/tenant"
	"github.com/olegiv/ecdsites/internal/util"
)

// HostResolver maps hostnames and ids to tenants.
type HostResolver interface {
	ResolveByHost(ctx context.Context, host string) (*store.Tenant, error)
	ResolveByID(ctx context.Context, id string) (*store.Tenant, error)
}

// TenantConfig configures TenantContext.
type TenantConfig struct {
	Resolver      HostResolver
	Sessions      *scs.SessionManager
	DevHosts      []string
	DevTenantID   string
	PlatformHosts []string
	Logger        *slog.Logger
}

// TenantContext decides which tenant, if any, a request belongs to.
//
// An inbound X-Tenant-ID header is always dropped. Admin paths need a
// session and carry no tenant. Development hosts get the configured
// development tenant, platform hosts get none, and every other host is
// resolved through its domain binding or platform subdomain. Resolver
// failures are logged and the request continues without a tenant.
func TenantContext(cfg TenantConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(tenant.HeaderTenantID)

			if isAdminPath(r.URL.Path) {
				if !IsAuthenticated(cfg.Sessions, r) {
					http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			host := util.NormalizeHost(r.Host)
			switch {
			case util.HostInList(host, cfg.DevHosts):
				if cfg.DevTenantID != "" {
					r = withDevTenant(r, cfg.Resolver, cfg.DevTenantID, logger)
				}
				next.ServeHTTP(w, r)
				return
			case util.HostInList(host, cfg.PlatformHosts):
				next.ServeHTTP(w, r)
				return
			}

			t, err := cfg.Resolver.ResolveByHost(r.Context(), host)
			if err != nil {
				logger.Error("tenant resolution failed", "host", host, "error", err, "category", "tenant")
				next.ServeHTTP(w, r)
				return
			}
			if t != nil {
				r = attachTenant(r, t)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withDevTenant(r *http.Request, resolver HostResolver, id string, logger *slog.Logger) *http.Request {
	t, err := resolver.ResolveByID(r.Context(), id)
	if err != nil {
		logger.Error("development tenant lookup failed", "tenant_id", id, "error", err, "category", "tenant")
	}
	if t != nil {
		return attachTenant(r, t)
	}
	r = r.WithContext(tenant.WithID(r.Context(), id))
	r.Header.Set(tenant.HeaderTenantID, id)
	return r
}

func attachTenant(r *http.Request, t *store.Tenant) *http.Request {
	r = r.WithContext(tenant.WithTenant(r.Context(), t))
	r.Header.Set(tenant.HeaderTenantID, t.ID)
	return r
}

func isAdminPath(p string) bool {
	return p == "/admin" || strings.HasPrefix(p, "/admin/")
}
