// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/ecdsites/internal/middleware"
	"github.com/olegiv/ecdsites/internal/render"
	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
)

// dashboardEventLimit is how many recent events the dashboard lists.
const dashboardEventLimit = 20

// DashboardData is the admin landing page's template data.
type DashboardData struct {
	User    *store.AdminUser
	Centres []store.Tenant
	Events  []store.Event
}

// AdminHandler serves the admin landing page.
type AdminHandler struct {
	tenants  *service.TenantService
	events   *service.EventService
	renderer *render.Renderer
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(tenants *service.TenantService, events *service.EventService, renderer *render.Renderer, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{tenants: tenants, events: events, renderer: renderer, logger: logger}
}

// Dashboard handles GET /admin.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	centres, err := h.tenants.ListActiveTenants(r.Context())
	if err != nil {
		logAndInternalError(w, r, h.logger, "listing centres", err)
		return
	}
	events, err := h.events.ListRecent(r.Context(), dashboardEventLimit)
	if err != nil {
		logAndInternalError(w, r, h.logger, "listing events", err)
		return
	}

	data := render.TemplateData{
		Title: "Dashboard",
		Data: DashboardData{
			User:    middleware.GetAdmin(r),
			Centres: centres,
			Events:  events,
		},
	}
	if err := h.renderer.Render(w, r, http.StatusOK, "admin/dashboard", data); err != nil {
		logAndInternalError(w, r, h.logger, "rendering dashboard", err)
	}
}
