// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"time"
)

const renderKeyPrefix = "render:"

// RenderCache holds rendered public pages keyed by tenant id and path.
// The TTL bounds how long a page can be served after its source changed.
type RenderCache struct {
	cache Cacher
	ttl   time.Duration
}

// NewRenderCache wraps c. ttl must be positive.
func NewRenderCache(c Cacher, ttl time.Duration) *RenderCache {
	return &RenderCache{cache: c, ttl: ttl}
}

// RenderKey builds the cache key for a tenant path.
func RenderKey(tenantID, path string) string {
	return renderKeyPrefix + tenantID + ":" + path
}

// Get returns the cached page body and whether it was found.
func (r *RenderCache) Get(ctx context.Context, tenantID, path string) ([]byte, bool, error) {
	body, err := r.cache.Get(ctx, RenderKey(tenantID, path))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return body, true, nil
}

// Set stores a rendered page body.
func (r *RenderCache) Set(ctx context.Context, tenantID, path string, body []byte) error {
	return r.cache.Set(ctx, RenderKey(tenantID, path), body, r.ttl)
}

// Invalidate drops one rendered path.
func (r *RenderCache) Invalidate(ctx context.Context, tenantID, path string) error {
	return r.cache.Delete(ctx, RenderKey(tenantID, path))
}

// InvalidateTenant drops every rendered path of a tenant, used when chrome
// shared by all pages (menu, theme, branding) changes.
func (r *RenderCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	return r.cache.DeleteByPrefix(ctx, renderKeyPrefix+tenantID+":")
}

// TTL returns the configured lifetime of a rendered page.
func (r *RenderCache) TTL() time.Duration {
	return r.ttl
}
