// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ecdsites/internal/service"
)

// StatusRequest represents the request body for a registration status change.
type StatusRequest struct {
	Status string `json:"status"`
}

// ListRegistrations handles GET /api/centres/{id}/registrations.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Centre", "listing registrations", err)
		return
	}
	resp := make([]RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp = append(resp, RegistrationToResponse(reg))
	}
	writeData(w, http.StatusOK, "registrations", resp)
}

// UpdateRegistrationStatus handles PUT /api/registrations/{id}/status.
func (h *Handler) UpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reg, err := h.registrations.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeServiceError(w, r, "Registration", "updating registration status", err)
		return
	}
	writeData(w, http.StatusOK, "registration", RegistrationToResponse(reg))
}

// RecordPayment handles PUT /api/registrations/{id}/payment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req service.RecordPaymentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	reg, err := h.registrations.RecordPayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, "Registration", "recording payment", err)
		return
	}
	writeData(w, http.StatusOK, "registration", RegistrationToResponse(reg))
}
