// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tenant maps request hostnames to tenants and carries the resolved
// tenant through request contexts.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ecdsites/internal/cache"
	"github.com/olegiv/ecdsites/internal/metrics"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/util"
)

// DefaultCacheTTL is how long a successful host resolution is reused.
const DefaultCacheTTL = 5 * time.Minute

const hostKeyPrefix = "tenant:host:"

// Store is the subset of store.Queries the resolver reads.
type Store interface {
	GetTenantByVerifiedHostname(ctx context.Context, hostname string) (store.Tenant, error)
	GetActiveTenantBySlug(ctx context.Context, slug string) (store.Tenant, error)
	GetTenantByID(ctx context.Context, id string) (store.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (store.Tenant, error)
}

// Options configures a Resolver.
type Options struct {
	SitesDomain string
	CacheTTL    time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Resolver maps hostnames to tenants. Verified domain bindings win over
// <slug>.<sites-domain> subdomains. Successful host resolutions are cached
// for CacheTTL; misses are never cached so a new binding is visible at once.
type Resolver struct {
	store       Store
	hosts       *cache.TypedCache[store.Tenant]
	sitesDomain string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewResolver creates a resolver that owns c for host lookups.
func NewResolver(s Store, c cache.Cacher, opts Options) *Resolver {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		store:       s,
		hosts:       cache.NewTypedCache[store.Tenant](c, ttl),
		sitesDomain: util.NormalizeHost(opts.SitesDomain),
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// SitesDomain returns the normalized platform sites domain.
func (r *Resolver) SitesDomain() string {
	return r.sitesDomain
}

// SubdomainHost returns the platform hostname for a tenant slug.
func (r *Resolver) SubdomainHost(slug string) string {
	return slug + "." + r.sitesDomain
}

// ResolveByHost returns the tenant serving host, or nil if none does.
// A nil tenant with a nil error means "not configured", not a failure.
func (r *Resolver) ResolveByHost(ctx context.Context, host string) (*store.Tenant, error) {
	host = util.NormalizeHost(host)
	if host == "" {
		r.metrics.TenantResolution(metrics.ResultNotFound)
		return nil, nil
	}

	key := hostKeyPrefix + host
	if t, ok := r.hosts.Get(ctx, key); ok {
		r.metrics.TenantResolution(metrics.ResultHit)
		return t, nil
	}

	t, err := r.lookupHost(ctx, host)
	if err != nil {
		r.metrics.TenantResolution(metrics.ResultError)
		return nil, err
	}
	if t == nil {
		r.metrics.TenantResolution(metrics.ResultNotFound)
		return nil, nil
	}

	if err := r.hosts.Set(ctx, key, t); err != nil {
		r.logger.Warn("caching tenant resolution failed",
			"host", host, "error", err, "category", "cache")
	}
	r.metrics.TenantResolution(metrics.ResultMiss)
	return t, nil
}

// lookupHost applies the resolution order against the store.
func (r *Resolver) lookupHost(ctx context.Context, host string) (*store.Tenant, error) {
	t, err := r.store.GetTenantByVerifiedHostname(ctx, host)
	switch {
	case err == nil:
		return &t, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("looking up domain binding %q: %w", host, err)
	}

	slug, ok := util.SubdomainLabel(host, r.sitesDomain)
	if !ok {
		return nil, nil
	}

	t, err = r.store.GetActiveTenantBySlug(ctx, slug)
	switch {
	case err == nil:
		return &t, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	default:
		return nil, fmt.Errorf("looking up tenant slug %q: %w", slug, err)
	}
}

// ResolveByID looks a tenant up directly, whatever its status.
func (r *Resolver) ResolveByID(ctx context.Context, id string) (*store.Tenant, error) {
	return direct(r.store.GetTenantByID(ctx, id))
}

// ResolveBySlug looks a tenant up directly, whatever its status.
func (r *Resolver) ResolveBySlug(ctx context.Context, slug string) (*store.Tenant, error) {
	return direct(r.store.GetTenantBySlug(ctx, slug))
}

func direct(t store.Tenant, err error) (*store.Tenant, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Invalidate drops cached resolutions for the given hosts.
func (r *Resolver) Invalidate(ctx context.Context, hosts ...string) error {
	var errs []error
	for _, h := range hosts {
		if h = util.NormalizeHost(h); h == "" {
			continue
		}
		if err := r.hosts.Delete(ctx, hostKeyPrefix+h); err != nil {
			errs = append(errs, fmt.Errorf("invalidating %q: %w", h, err))
		}
	}
	return errors.Join(errs...)
}
