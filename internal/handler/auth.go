// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ecdsites/internal/auth"
	"github.com/olegiv/ecdsites/internal/middleware"
	"github.com/olegiv/ecdsites/internal/render"
	"github.com/olegiv/ecdsites/internal/store"
)

const invalidCredentials = "Invalid email or password"

// LoginData is the login form's template data.
type LoginData struct {
	Next  string
	Email string
}

// AuthHandler handles admin sign-in and sign-out.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
	logger          *slog.Logger
	now             func() time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
		logger:          logger,
		now:             time.Now,
	}
}

// LoginForm renders the login page. Signed-in admins go to /admin.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"), RouteAdmin)
	if middleware.IsAuthenticated(h.sessionManager, r) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, LoginData{Next: next}, "")
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, LoginData{Next: RouteAdmin}, "Invalid form data")
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.PostForm.Get("email")))
	password := r.PostForm.Get("password")
	data := LoginData{Next: safeNext(r.PostForm.Get("next"), RouteAdmin), Email: email}

	if email == "" || password == "" {
		h.renderLogin(w, r, http.StatusBadRequest, data, "Email and password are required")
		return
	}

	if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
		h.logger.Warn("login attempt on locked account", "email", email, "ip", middleware.ClientIP(r), "category", "auth")
		h.renderLogin(w, r, http.StatusTooManyRequests, data,
			fmt.Sprintf("Too many failed attempts. Try again in %s.", remaining.Round(time.Minute)))
		return
	}

	user, err := h.queries.GetAdminUserByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logAndInternalError(w, r, h.logger, "loading admin user", err)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		auth.CheckDummy(password)
		h.failLogin(w, r, data)
		return
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		h.logger.Error("checking admin password", "user_id", user.ID, "error", err, "category", "auth")
	}
	if !ok {
		h.failLogin(w, r, data)
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, r, h.logger, "renewing session token", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyAdminID, user.ID)
	h.loginProtection.RecordSuccessfulLogin(email)
	h.recordLogin(r, user, password)

	h.logger.Info("admin signed in", "user_id", user.ID, "ip", middleware.ClientIP(r), "category", "auth")
	http.Redirect(w, r, data.Next, http.StatusSeeOther)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		logAndInternalError(w, r, h.logger, "destroying session", err)
		return
	}
	http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
}

func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, data LoginData) {
	locked, d := h.loginProtection.RecordFailedAttempt(data.Email)
	h.logger.Warn("failed admin login", "email", data.Email, "ip", middleware.ClientIP(r), "category", "auth")
	if locked {
		h.renderLogin(w, r, http.StatusTooManyRequests, data,
			fmt.Sprintf("Too many failed attempts. Try again in %s.", d.Round(time.Minute)))
		return
	}
	h.renderLogin(w, r, http.StatusUnauthorized, data, invalidCredentials)
}

// recordLogin stores the login time and upgrades outdated password hashes.
func (h *AuthHandler) recordLogin(r *http.Request, user store.AdminUser, password string) {
	hash := user.PasswordHash
	if auth.NeedsRehash(hash) {
		if rehashed, err := auth.HashPassword(password); err == nil {
			hash = rehashed
		}
	}
	now := h.now().UTC()
	err := h.queries.UpdateAdminUserLogin(r.Context(), store.UpdateAdminUserLoginParams{
		LastLoginAt:  sql.NullTime{Time: now, Valid: true},
		PasswordHash: hash,
		UpdatedAt:    now,
		ID:           user.ID,
	})
	if err != nil {
		h.logger.Error("recording admin login", "user_id", user.ID, "error", err)
	}
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data LoginData, errMsg string) {
	td := render.TemplateData{Title: "Sign in", Data: data}
	if errMsg != "" {
		td.Flash = errMsg
		td.FlashType = flashError
	}
	if err := h.renderer.Render(w, r, status, "auth/login", td); err != nil {
		logAndInternalError(w, r, h.logger, "rendering login page", err)
	}
}
