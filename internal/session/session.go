// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures admin login sessions backed by SQLite.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Cookie names. Secure deployments use the __Host- prefix, which browsers
// only accept over HTTPS with Path=/ and no Domain.
const (
	CookieName       = "ecd_session"
	SecureCookieName = "__Host-ecd_session"
)

// Options configures New.
type Options struct {
	// Secure marks the cookie Secure and switches to the __Host- name.
	Secure bool
	// Lifetime is the absolute session lifetime (default 12h).
	Lifetime time.Duration
	// IdleTimeout ends sessions without activity (default 2h).
	IdleTimeout time.Duration
	// CleanupInterval controls expired-row deletion. Zero disables it.
	CleanupInterval time.Duration
}

// DefaultOptions returns the production settings.
func DefaultOptions(secure bool) Options {
	return Options{
		Secure:          secure,
		Lifetime:        12 * time.Hour,
		IdleTimeout:     2 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// New creates a session manager storing sessions in the sessions table.
// Sessions are host-only, so a login on the platform host never leaks to
// centre sites.
func New(db *sql.DB, opts Options) *scs.SessionManager {
	if opts.Lifetime <= 0 {
		opts.Lifetime = 12 * time.Hour
	}

	sm := scs.New()
	sm.Store = sqlite3store.NewWithCleanupInterval(db, opts.CleanupInterval)
	sm.Lifetime = opts.Lifetime
	sm.IdleTimeout = opts.IdleTimeout

	sm.Cookie.Name = CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = opts.Secure
	if opts.Secure {
		sm.Cookie.Name = SecureCookieName
	}

	return sm
}
