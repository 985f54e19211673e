// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ecdsites/internal/service"
)

// ListMenus handles GET /api/centres/{id}/menus.
func (h *Handler) ListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.menus.ListMenus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Centre", "listing menus", err)
		return
	}
	resp := make([]MenuResponse, 0, len(menus))
	for _, m := range menus {
		resp = append(resp, menuToResponse(m))
	}
	writeData(w, http.StatusOK, "menus", resp)
}

// CreateMenu handles POST /api/centres/{id}/menus.
func (h *Handler) CreateMenu(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMenuInput
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.menus.CreateMenu(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "creating menu", err)
		return
	}
	writeData(w, http.StatusCreated, "menu", menuToResponse(m))
}

// ActivateMenu handles PUT /api/menus/{id}/activate.
func (h *Handler) ActivateMenu(w http.ResponseWriter, r *http.Request) {
	m, err := h.menus.ActivateMenu(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Menu", "activating menu", err)
		return
	}
	writeData(w, http.StatusOK, "menu", menuToResponse(m))
}

// ListThemes handles GET /api/centres/{id}/themes.
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.themes.ListThemes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Centre", "listing themes", err)
		return
	}
	resp := make([]ThemeResponse, 0, len(themes))
	for _, t := range themes {
		resp = append(resp, themeToResponse(t))
	}
	writeData(w, http.StatusOK, "themes", resp)
}

// CreateTheme handles POST /api/centres/{id}/themes.
func (h *Handler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req service.CreateThemeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.themes.CreateTheme(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "creating theme", err)
		return
	}
	writeData(w, http.StatusCreated, "theme", themeToResponse(t))
}

// ActivateTheme handles PUT /api/themes/{id}/activate.
func (h *Handler) ActivateTheme(w http.ResponseWriter, r *http.Request) {
	t, err := h.themes.ActivateTheme(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Theme", "activating theme", err)
		return
	}
	writeData(w, http.StatusOK, "theme", themeToResponse(t))
}
