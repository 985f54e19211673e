// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ecdsites/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyAdmin holds the signed-in admin user.
const ContextKeyAdmin ContextKey = "admin_user"

// SessionKeyAdminID stores the signed-in admin user's id.
const SessionKeyAdminID = "admin_user_id"

// AdminLoader is the subset of store.Queries LoadAdmin reads.
type AdminLoader interface {
	GetAdminUserByID(ctx context.Context, id string) (store.AdminUser, error)
}

// IsAuthenticated reports whether the request carries an admin session.
func IsAuthenticated(sm *scs.SessionManager, r *http.Request) bool {
	return sm != nil && sm.GetString(r.Context(), SessionKeyAdminID) != ""
}

// LoadAdmin loads the session's admin user into the request context. A
// session pointing at a deleted user is destroyed and redirected to /login.
func LoadAdmin(sm *scs.SessionManager, users AdminLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sm.GetString(r.Context(), SessionKeyAdminID)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetAdminUserByID(r.Context(), id)
			if err != nil {
				_ = sm.Destroy(r.Context())
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdmin, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdmin returns the admin user loaded by LoadAdmin, or nil.
func GetAdmin(r *http.Request) *store.AdminUser {
	user, ok := r.Context().Value(ContextKeyAdmin).(store.AdminUser)
	if !ok {
		return nil
	}
	return &user
}
