// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ecdsites/internal/imaging"
	"github.com/olegiv/ecdsites/internal/service"
)

// logoFormField is the multipart field carrying an uploaded logo.
const logoFormField = "logo"

// AddDomainRequest represents the request body for adding a domain binding.
type AddDomainRequest struct {
	Hostname string `json:"hostname"`
	Primary  bool   `json:"primary"`
}

// ListCentres handles GET /api/centres.
func (h *Handler) ListCentres(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.ListActiveTenants(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Centre", "listing centres", err)
		return
	}
	resp := make([]CentreResponse, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, centreToResponse(t))
	}
	writeData(w, http.StatusOK, "centres", resp)
}

// CreateCentre handles POST /api/centres.
func (h *Handler) CreateCentre(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTenantInput
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.tenants.CreateTenant(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "creating centre", err)
		return
	}
	writeData(w, http.StatusCreated, "centre", centreToResponse(t))
}

// GetCentre handles GET /api/centres/{id}.
func (h *Handler) GetCentre(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.GetTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Centre", "loading centre", err)
		return
	}
	writeData(w, http.StatusOK, "centre", centreToResponse(t))
}

// UpdateCentre handles PUT /api/centres/{id}.
func (h *Handler) UpdateCentre(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTenantInput
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.tenants.UpdateTenant(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "updating centre", err)
		return
	}
	writeData(w, http.StatusOK, "centre", centreToResponse(t))
}

// UploadLogo handles POST /api/centres/{id}/logo (multipart, field "logo").
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxLogoBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(imaging.MaxLogoBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteBadRequest(w, imaging.ErrImageTooLarge.Error(), nil)
			return
		}
		WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	file, _, err := r.FormFile(logoFormField)
	if err != nil {
		WriteValidationError(w, map[string]string{logoFormField: "is required"})
		return
	}
	defer func() { _ = file.Close() }()

	t, err := h.tenants.UploadLogo(r.Context(), chi.URLParam(r, "id"), file)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "uploading logo", err)
		return
	}
	writeData(w, http.StatusOK, "centre", centreToResponse(t))
}

// ListDomains handles GET /api/centres/{id}/domains.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.tenants.ListDomains(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Centre", "listing domains", err)
		return
	}
	resp := make([]DomainResponse, 0, len(domains))
	for _, d := range domains {
		resp = append(resp, domainToResponse(d))
	}
	writeData(w, http.StatusOK, "domains", resp)
}

// AddDomain handles POST /api/centres/{id}/domains.
func (h *Handler) AddDomain(w http.ResponseWriter, r *http.Request) {
	var req AddDomainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.tenants.AddDomain(r.Context(), chi.URLParam(r, "id"), req.Hostname, req.Primary)
	if err != nil {
		h.writeServiceError(w, r, "Centre", "adding domain", err)
		return
	}
	writeData(w, http.StatusCreated, "domain", domainToResponse(d))
}

// VerifyDomain handles PUT /api/domains/{id}/verify.
func (h *Handler) VerifyDomain(w http.ResponseWriter, r *http.Request) {
	d, err := h.tenants.VerifyDomain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Domain", "verifying domain", err)
		return
	}
	writeData(w, http.StatusOK, "domain", domainToResponse(d))
}
