// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/ecdsites/internal/middleware"
	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/tenant"
)

const (
	maxRegistrationBody = 64 << 10
	maxAgentLength      = 120
)

// CountryLookup maps a client address to a country code.
type CountryLookup interface {
	Country(ip string) string
}

// RegistrationHandler accepts public registration requests on centre sites.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	geo           CountryLookup
	logger        *slog.Logger
}

// RegistrationReceipt is the public response to a submitted registration.
type RegistrationReceipt struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRegistrationHandler creates a RegistrationHandler. geo may be nil.
func NewRegistrationHandler(registrations *service.RegistrationService, geo CountryLookup, logger *slog.Logger) *RegistrationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationHandler{registrations: registrations, geo: geo, logger: logger}
}

// Submit handles POST /register. The body is JSON or a URL-encoded form
// using the same field names.
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.IDFromContext(r.Context())
	if !ok {
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Centre not found", nil)
		return
	}

	in, err := decodeRegistration(w, r)
	if err != nil {
		middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body", nil)
		return
	}

	ip := middleware.ClientIP(r)
	meta := service.SubmissionMeta{
		Country:   h.country(ip),
		UserAgent: describeAgent(r.UserAgent()),
	}

	reg, err := h.registrations.Submit(r.Context(), tenantID, in, meta)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("registration received",
		"tenant_id", tenantID,
		"registration_id", reg.ID,
		"country", meta.Country,
	)
	writeJSON(w, http.StatusCreated, map[string]RegistrationReceipt{"registration": receipt(reg)})
}

func (h *RegistrationHandler) country(ip string) string {
	if h.geo == nil {
		return ""
	}
	return h.geo.Country(ip)
}

func (h *RegistrationHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		middleware.WriteAPIError(w, http.StatusBadRequest, "validation_error", "Please check the highlighted fields", ve.Fields)
	case errors.Is(err, service.ErrNotFound):
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Centre not found", nil)
	default:
		h.logger.Error("storing registration", "error", err, "path", r.URL.Path)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

func decodeRegistration(w http.ResponseWriter, r *http.Request) (service.SubmitRegistrationInput, error) {
	var in service.SubmitRegistrationInput
	r.Body = http.MaxBytesReader(w, r.Body, maxRegistrationBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		err := dec.Decode(&in)
		return in, err
	}

	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in = service.SubmitRegistrationInput{
		GuardianName:   r.PostForm.Get("guardian_name"),
		GuardianEmail:  r.PostForm.Get("guardian_email"),
		GuardianPhone:  r.PostForm.Get("guardian_phone"),
		ChildName:      r.PostForm.Get("child_name"),
		ChildBirthDate: r.PostForm.Get("child_birth_date"),
		PreferredStart: r.PostForm.Get("preferred_start"),
		Notes:          r.PostForm.Get("notes"),
	}
	return in, nil
}

// describeAgent reduces a User-Agent header to "Browser version on OS".
func describeAgent(header string) string {
	if header == "" {
		return ""
	}
	ua := useragent.Parse(header)
	if ua.Name == "" {
		return truncate(header, maxAgentLength)
	}

	var b strings.Builder
	b.WriteString(ua.Name)
	if ua.Version != "" {
		b.WriteString(" " + ua.Version)
	}
	if ua.OS != "" {
		b.WriteString(" on " + ua.OS)
	}
	if ua.Bot {
		b.WriteString(" (bot)")
	}
	return truncate(b.String(), maxAgentLength)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

func receipt(r store.RegistrationRequest) RegistrationReceipt {
	return RegistrationReceipt{ID: r.ID, Status: r.Status, CreatedAt: r.CreatedAt}
}
