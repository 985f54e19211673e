// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ecdsites/internal/auth"
	"github.com/olegiv/ecdsites/internal/middleware"
	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/testutil"
)

const (
	adminEmail    = "ops@ecdsites.test"
	adminPassword = "correct horse battery staple"
)

type adminFixture struct {
	*site
	user   store.AdminUser
	router http.Handler
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	s := newSite(t)
	logger := testutil.TestLoggerSilent()

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	user, err := store.New(s.db).CreateAdminUser(context.Background(), store.CreateAdminUserParams{
		ID:           uuid.NewString(),
		Email:        adminEmail,
		Name:         "Nomsa",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{MaxFailedAttempts: 3, Logger: logger})
	authHandler := NewAuthHandler(s.db, s.views, s.sessions, lp, logger)
	admin := NewAdminHandler(
		service.NewTenantService(s.db, nil, nil, nil, logger),
		service.NewEventService(s.db),
		s.views, logger)

	r := chi.NewRouter()
	r.Use(s.sessions.LoadAndSave)
	r.Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)
	r.Post(RouteLogout, authHandler.Logout)
	r.With(middleware.LoadAdmin(s.sessions, store.New(s.db))).Get(RouteAdmin, admin.Dashboard)

	return &adminFixture{site: s, user: user, router: r}
}

func (f *adminFixture) login(t *testing.T, email, password, next string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}, "next": {next}}
	req := httptest.NewRequest(http.MethodPost, RouteLogin, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *adminFixture) getWithCookies(t *testing.T, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	f := newAdminFixture(t)

	rec := f.login(t, "  OPS@ecdsites.test ", adminPassword, "/admin/centres")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/admin/centres", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "session cookie is issued")

	user, err := store.New(f.db).GetAdminUserByEmail(context.Background(), adminEmail)
	require.NoError(t, err)
	assert.True(t, user.LastLoginAt.Valid)

	dash := f.getWithCookies(t, RouteAdmin, cookies)
	require.Equal(t, http.StatusOK, dash.Code)
	assert.Contains(t, dash.Body.String(), "Welcome, Nomsa")

	form := f.getWithCookies(t, RouteLogin, cookies)
	assert.Equal(t, http.StatusSeeOther, form.Code, "signed-in admins skip the form")
	assert.Equal(t, RouteAdmin, form.Header().Get("Location"))
}

func TestLoginRejectsOpenRedirect(t *testing.T) {
	f := newAdminFixture(t)
	rec := f.login(t, adminEmail, adminPassword, "//evil.example.com/")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, RouteAdmin, rec.Header().Get("Location"))
}

func TestLoginFailures(t *testing.T) {
	f := newAdminFixture(t)

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"missing password", adminEmail, "", http.StatusBadRequest},
		{"unknown email", "nobody@ecdsites.test", adminPassword, http.StatusUnauthorized},
		{"wrong password", adminEmail, "not the password at all", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.login(t, tt.email, tt.password, "")
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, rec.Header().Get("Location"))
		})
	}
}

func TestLoginLockout(t *testing.T) {
	f := newAdminFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.login(t, adminEmail, "wrong-password-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.login(t, adminEmail, "wrong-password-2", "").Code)

	rec := f.login(t, adminEmail, "wrong-password-3", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many failed attempts")

	rec = f.login(t, adminEmail, adminPassword, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "the right password does not unlock early")
}

func TestLogout(t *testing.T) {
	f := newAdminFixture(t)
	cookies := f.login(t, adminEmail, adminPassword, "").Result().Cookies()

	req := httptest.NewRequest(http.MethodPost, RouteLogout, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, RouteLogin, rec.Header().Get("Location"))

	form := f.getWithCookies(t, RouteLogin, cookies)
	assert.Equal(t, http.StatusOK, form.Code, "the old session no longer authenticates")
}

func TestDashboardListsCentres(t *testing.T) {
	f := newAdminFixture(t)
	testutil.CreateTenant(t, f.db, "sunshine")
	cookies := f.login(t, adminEmail, adminPassword, "").Result().Cookies()

	rec := f.getWithCookies(t, RouteAdmin, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sunshine Centre")
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/admin"},
		{"/admin/centres?page=2", "/admin/centres?page=2"},
		{"//evil.example.com", "/admin"},
		{"https://evil.example.com/admin", "/admin"},
		{`/\evil.example.com`, "/admin"},
		{"admin", "/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, safeNext(tt.next, "/admin"))
		})
	}
}
