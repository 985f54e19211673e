// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package publish drops cached copies of public pages after content changes.
package publish

import (
	"context"
	"errors"
	"strings"
)

// HomeSlug is the page served at "/".
const HomeSlug = "home"

// Invalidator removes cached copies of a tenant's public pages.
type Invalidator interface {
	InvalidatePath(ctx context.Context, tenantID, path string) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// PathForSlug returns the public path a page slug is served at.
func PathForSlug(slug string) string {
	if slug == HomeSlug || slug == "" {
		return "/"
	}
	return "/" + strings.TrimPrefix(slug, "/")
}

// Multi fans an invalidation out to several invalidators.
type Multi []Invalidator

// InvalidatePath runs every invalidator and joins their errors.
func (m Multi) InvalidatePath(ctx context.Context, tenantID, path string) error {
	var errs []error
	for _, inv := range m {
		if inv == nil {
			continue
		}
		if err := inv.InvalidatePath(ctx, tenantID, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvalidateTenant runs every invalidator and joins their errors.
func (m Multi) InvalidateTenant(ctx context.Context, tenantID string) error {
	var errs []error
	for _, inv := range m {
		if inv == nil {
			continue
		}
		if err := inv.InvalidateTenant(ctx, tenantID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards invalidations.
type Nop struct{}

// InvalidatePath does nothing.
func (Nop) InvalidatePath(context.Context, string, string) error { return nil }

// InvalidateTenant does nothing.
func (Nop) InvalidateTenant(context.Context, string) error { return nil }
