// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// HeaderAdminToken carries the shared admin secret.
const HeaderAdminToken = "X-Admin-Token"

// AdminTokenConfig configures AdminToken.
type AdminTokenConfig struct {
	// Token is the shared secret. Empty disables token access.
	Token string
	// TestMode lets requests without any token through. Every bypass is
	// logged at WARN so it lands in the event log.
	TestMode bool
	Logger   *slog.Logger
}

// AdminToken guards the admin API with a shared secret taken from
// X-Admin-Token or an Authorization bearer token.
func AdminToken(cfg AdminTokenConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	want := []byte(cfg.Token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := presentedToken(r)

			if presented == "" {
				if cfg.TestMode {
					logger.Warn("admin token check bypassed in test mode",
						"method", r.Method,
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
						"category", "auth",
					)
					next.ServeHTTP(w, r)
					return
				}
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Missing admin token", nil)
				return
			}

			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(presented), want) != 1 {
				logger.Warn("invalid admin token", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "category", "auth")
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid admin token", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func presentedToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderAdminToken)); token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
