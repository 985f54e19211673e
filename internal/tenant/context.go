// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tenant

import (
	"context"

	"github.com/olegiv/ecdsites/internal/store"
)

type contextKey struct{ name string }

var (
	idKey     = contextKey{"tenant-id"}
	tenantKey = contextKey{"tenant"}
)

// HeaderTenantID is set on forwarded requests for downstream proxies.
// It is never read back from inbound requests.
const HeaderTenantID = "X-Tenant-ID"

// WithID returns a copy of ctx carrying the tenant id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// IDFromContext returns the tenant id attached to ctx, if any.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey).(string)
	return id, ok && id != ""
}

// WithTenant attaches the resolved tenant and its id to ctx.
func WithTenant(ctx context.Context, t *store.Tenant) context.Context {
	if t == nil {
		return ctx
	}
	ctx = WithID(ctx, t.ID)
	return context.WithValue(ctx, tenantKey, t)
}

// FromContext returns the tenant record attached by WithTenant. The record
// is absent when only an id was attached (development hosts).
func FromContext(ctx context.Context) *store.Tenant {
	t, _ := ctx.Value(tenantKey).(*store.Tenant)
	return t
}
