// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the admin JSON API used by the page builder.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/imaging"
	"github.com/olegiv/ecdsites/internal/middleware"
	"github.com/olegiv/ecdsites/internal/service"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

// Services bundles the services the API calls into.
type Services struct {
	Tenants       *service.TenantService
	Pages         *service.PageService
	Menus         *service.MenuService
	Themes        *service.ThemeService
	Registrations *service.RegistrationService
	Jobs          JobManager // optional
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	tenants       *service.TenantService
	pages         *service.PageService
	menus         *service.MenuService
	themes        *service.ThemeService
	registrations *service.RegistrationService
	jobs          JobManager
	registry      *blocks.Registry
	logger        *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc Services, registry *blocks.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tenants:       svc.Tenants,
		pages:         svc.Pages,
		menus:         svc.Menus,
		themes:        svc.Themes,
		registrations: svc.Registrations,
		jobs:          svc.Jobs,
		registry:      registry,
		logger:        logger,
	}
}

// Routes registers the API endpoints on r. Authentication is applied by
// the caller.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/blocks", h.ListBlocks)

	r.Route("/centres", func(r chi.Router) {
		r.Get("/", h.ListCentres)
		r.Post("/", h.CreateCentre)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCentre)
			r.Put("/", h.UpdateCentre)
			r.Post("/logo", h.UploadLogo)
			r.Get("/domains", h.ListDomains)
			r.Post("/domains", h.AddDomain)
			r.Get("/menus", h.ListMenus)
			r.Post("/menus", h.CreateMenu)
			r.Get("/themes", h.ListThemes)
			r.Post("/themes", h.CreateTheme)
			r.Get("/registrations", h.ListRegistrations)
		})
	})
	r.Put("/domains/{id}/verify", h.VerifyDomain)

	r.Route("/pages", func(r chi.Router) {
		r.Get("/", h.ListPages)
		r.Post("/", h.CreatePage)
		r.Get("/{id}", h.GetPage)
		r.Put("/{id}", h.SavePage)
		r.Delete("/{id}", h.DeletePage)
		r.Put("/{id}/publish", h.PublishPage)
	})

	r.Put("/menus/{id}/activate", h.ActivateMenu)
	r.Put("/themes/{id}/activate", h.ActivateTheme)

	r.Put("/registrations/{id}/status", h.UpdateRegistrationStatus)
	r.Put("/registrations/{id}/payment", h.RecordPayment)

	if h.jobs != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Post("/{name}/run", h.RunJob)
			r.Put("/{name}/schedule", h.UpdateJobSchedule)
			r.Delete("/{name}/schedule", h.ResetJobSchedule)
		})
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeData wraps v in a single-key envelope such as {"page": {...}}.
func writeData(w http.ResponseWriter, statusCode int, key string, v any) {
	WriteJSON(w, statusCode, map[string]any{key: v})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteValidationError writes a 400 response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, "validation_error", "Validation failed", fieldErrors)
}

// WriteBlockValidationError writes a 400 response with errors keyed by
// block index.
func WriteBlockValidationError(w http.ResponseWriter, bve *service.BlockValidationError) {
	byIndex := make(map[string]map[string]string, len(bve.Blocks))
	for i, fields := range bve.Blocks {
		byIndex[strconv.Itoa(i)] = fields
	}
	middleware.WriteAPIErrorBody(w, http.StatusBadRequest, middleware.APIErrorBody{
		Code:    "validation_error",
		Message: "One or more blocks are invalid",
		Blocks:  byIndex,
	})
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter) {
	middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected. On
// failure the response is written and false returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid JSON body", map[string]string{"body": err.Error()})
		return false
	}
	return true
}

// writeServiceError maps service errors onto API responses. entity names
// the resource in not-found messages.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, entity, action string, err error) {
	var bve *service.BlockValidationError
	var ve *service.ValidationError

	switch {
	case errors.As(err, &bve):
		WriteBlockValidationError(w, bve)
	case errors.As(err, &ve):
		WriteValidationError(w, ve.Fields)
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, entity+" not found")
	case errors.Is(err, service.ErrConflict):
		middleware.WriteAPIError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, imaging.ErrUnsupportedImage), errors.Is(err, imaging.ErrImageTooLarge):
		WriteBadRequest(w, err.Error(), nil)
	default:
		h.logger.Error(action+" failed",
			"error", err,
			"request_id", chimw.GetReqID(r.Context()),
			"path", r.URL.Path,
		)
		WriteInternalError(w)
	}
}

// ListBlocks handles GET /api/blocks.
func (h *Handler) ListBlocks(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, "blocks", h.registry.List())
}
