// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/olegiv/ecdsites/internal/util"
)

// AllPaths is sent as the path when a whole tenant must be revalidated.
const AllPaths = "*"

// HookRequest is the body POSTed to the revalidation endpoint.
type HookRequest struct {
	TenantID string `json:"tenant_id"`
	Path     string `json:"path"`
}

// HookInvalidator asks an external edge cache or CDN to revalidate a path.
type HookInvalidator struct {
	client *resty.Client
	url    string
}

// NewHookInvalidator creates an invalidator that POSTs to url. Unless
// allowPrivate is set, connections to loopback and private addresses are
// refused at dial time. Calls are not retried; the render cache TTL bounds
// staleness when the hook is down.
func NewHookInvalidator(url string, timeout time.Duration, allowPrivate bool) *HookInvalidator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "ecdsites-revalidate/1.0")
	if !allowPrivate {
		client.SetTransport(util.SSRFSafeTransport())
	}

	return &HookInvalidator{client: client, url: url}
}

// InvalidatePath requests revalidation of one path.
func (h *HookInvalidator) InvalidatePath(ctx context.Context, tenantID, path string) error {
	return h.post(ctx, HookRequest{TenantID: tenantID, Path: path})
}

// InvalidateTenant requests revalidation of every path of a tenant.
func (h *HookInvalidator) InvalidateTenant(ctx context.Context, tenantID string) error {
	return h.post(ctx, HookRequest{TenantID: tenantID, Path: AllPaths})
}

func (h *HookInvalidator) post(ctx context.Context, body HookRequest) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(h.url)
	if err != nil {
		return fmt.Errorf("calling revalidation hook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("revalidation hook returned status %d", resp.StatusCode())
	}
	return nil
}
