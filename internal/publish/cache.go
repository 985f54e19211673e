// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package publish

import (
	"context"
	"fmt"

	"github.com/olegiv/ecdsites/internal/cache"
	"github.com/olegiv/ecdsites/internal/metrics"
)

// CacheInvalidator drops entries from the rendered-page cache.
type CacheInvalidator struct {
	pages   *cache.RenderCache
	metrics *metrics.Metrics
}

// NewCacheInvalidator creates an invalidator for pages. m may be nil.
func NewCacheInvalidator(pages *cache.RenderCache, m *metrics.Metrics) *CacheInvalidator {
	return &CacheInvalidator{pages: pages, metrics: m}
}

// InvalidatePath drops one cached page.
func (c *CacheInvalidator) InvalidatePath(ctx context.Context, tenantID, path string) error {
	if err := c.pages.Invalidate(ctx, tenantID, path); err != nil {
		c.metrics.CacheInvalidation(metrics.ResultError)
		return fmt.Errorf("invalidating %s for tenant %s: %w", path, tenantID, err)
	}
	c.metrics.CacheInvalidation(metrics.ResultOK)
	return nil
}

// InvalidateTenant drops every cached page of a tenant.
func (c *CacheInvalidator) InvalidateTenant(ctx context.Context, tenantID string) error {
	if err := c.pages.InvalidateTenant(ctx, tenantID); err != nil {
		c.metrics.CacheInvalidation(metrics.ResultError)
		return fmt.Errorf("invalidating pages for tenant %s: %w", tenantID, err)
	}
	c.metrics.CacheInvalidation(metrics.ResultOK)
	return nil
}
