// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ecdsites/internal/service"
)

// PublishRequest represents the request body for PUT /api/pages/{id}/publish.
type PublishRequest struct {
	Published *bool `json:"published"`
}

// ListPages handles GET /api/pages?centre_id=.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	centreID := r.URL.Query().Get("centre_id")
	if centreID == "" {
		WriteValidationError(w, map[string]string{"centre_id": "is required"})
		return
	}
	pages, err := h.pages.ListPages(r.Context(), centreID)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "listing pages", err)
		return
	}
	resp := make([]PageResponse, 0, len(pages))
	for _, p := range pages {
		resp = append(resp, pageToResponse(p))
	}
	writeData(w, http.StatusOK, "pages", resp)
}

// CreatePage handles POST /api/pages.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePageInput
	if !decodeJSON(w, r, &req) {
		return
	}
	page, err := h.pages.CreatePage(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "creating page", err)
		return
	}
	writeData(w, http.StatusCreated, "page", pageToResponse(page))
}

// GetPage handles GET /api/pages/{id}.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.GetPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Page", "loading page", err)
		return
	}
	writeData(w, http.StatusOK, "page", pageDetailToResponse(page))
}

// SavePage handles PUT /api/pages/{id}. Metadata fields are patched when
// present; a "blocks" list replaces all blocks or fails as a whole.
func (h *Handler) SavePage(w http.ResponseWriter, r *http.Request) {
	var req service.SavePageInput
	if !decodeJSON(w, r, &req) {
		return
	}
	page, err := h.pages.SavePage(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, "Page", "saving page", err)
		return
	}
	writeData(w, http.StatusOK, "page", pageDetailToResponse(page))
}

// DeletePage handles DELETE /api/pages/{id}.
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.pages.DeletePage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "Page", "deleting page", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishPage handles PUT /api/pages/{id}/publish.
func (h *Handler) PublishPage(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Published == nil {
		WriteValidationError(w, map[string]string{"published": "is required"})
		return
	}
	page, err := h.pages.SetPublished(r.Context(), chi.URLParam(r, "id"), *req.Published)
	if err != nil {
		h.writeServiceError(w, r, "Page", "publishing page", err)
		return
	}
	writeData(w, http.StatusOK, "page", pageToResponse(page))
}
