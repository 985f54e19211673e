// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ecdsites/internal/render"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/util"
)

// TenantLookup loads a tenant by id.
type TenantLookup interface {
	ResolveByID(ctx context.Context, id string) (*store.Tenant, error)
}

// FrontendHandler serves published centre pages.
type FrontendHandler struct {
	pages   *render.PageRenderer
	tenants TenantLookup
	logger  *slog.Logger
}

// NewFrontendHandler creates a FrontendHandler. tenants is consulted when
// the request carries only a tenant id.
func NewFrontendHandler(pages *render.PageRenderer, tenants TenantLookup, logger *slog.Logger) *FrontendHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrontendHandler{pages: pages, tenants: tenants, logger: logger}
}

// Home handles GET / and serves the centre's home page.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "")
}

// Page handles GET /{slug}.
func (h *FrontendHandler) Page(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !util.IsValidSlug(slug) {
		h.renderNotFound(w, r, h.currentTenant(r))
		return
	}
	h.serve(w, r, slug)
}

// NotFound renders the 404 page, with the centre's chrome when known.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r, h.currentTenant(r))
}

func (h *FrontendHandler) serve(w http.ResponseWriter, r *http.Request, slug string) {
	t := h.currentTenant(r)
	if t == nil {
		h.renderNotFound(w, r, nil)
		return
	}

	body, err := h.pages.Render(r.Context(), t, slug)
	if errors.Is(err, render.ErrNotFound) {
		h.renderNotFound(w, r, t)
		return
	}
	if err != nil {
		logAndInternalError(w, r, h.logger, "rendering page", err)
		return
	}

	writeHTML(w, http.StatusOK, body)
}

// currentTenant returns the request's tenant record, loading it when the
// context only holds an id.
func (h *FrontendHandler) currentTenant(r *http.Request) *store.Tenant {
	return requestTenant(r, h.tenants, h.logger)
}

func (h *FrontendHandler) renderNotFound(w http.ResponseWriter, r *http.Request, t *store.Tenant) {
	body, err := h.pages.NotFound(t)
	if err != nil {
		h.logger.Error("rendering not found page", "error", err, "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusNotFound, body)
}
