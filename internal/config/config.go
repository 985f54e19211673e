// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads ecdsites configuration from ECD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/ecdsites/internal/util"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath         string        `env:"ECD_DB_PATH" envDefault:"./data/ecdsites.db"`
	SessionSecret  string        `env:"ECD_SESSION_SECRET,required"`
	ServerHost     string        `env:"ECD_SERVER_HOST" envDefault:"localhost"`
	ServerPort     int           `env:"ECD_SERVER_PORT" envDefault:"8080"`
	Env            string        `env:"ECD_ENV" envDefault:"development"`
	LogLevel       string        `env:"ECD_LOG_LEVEL" envDefault:"info"`
	UploadsDir     string        `env:"ECD_UPLOADS_DIR" envDefault:"./uploads"`
	RequestTimeout time.Duration `env:"ECD_REQUEST_TIMEOUT" envDefault:"30s"`

	// Admin API authentication
	AdminToken    string `env:"ECD_ADMIN_TOKEN"`
	AdminTestMode bool   `env:"ECD_ADMIN_TEST_MODE" envDefault:"false"` // Allow tokenless admin calls (audited)

	// Tenant resolution
	SitesDomain   string   `env:"ECD_SITES_DOMAIN" envDefault:"sites.localhost"`
	PlatformHosts []string `env:"ECD_PLATFORM_HOSTS" envSeparator:","`
	DevHosts      []string `env:"ECD_DEV_HOSTS" envSeparator:"," envDefault:"localhost,127.0.0.1"`
	DevTenantID   string   `env:"ECD_DEV_TENANT_ID"`

	// Cache configuration
	TenantCacheTTL time.Duration `env:"ECD_TENANT_CACHE_TTL" envDefault:"5m"`
	RenderCacheTTL time.Duration `env:"ECD_RENDER_CACHE_TTL" envDefault:"60s"`
	RedisURL       string        `env:"ECD_REDIS_URL"`                      // Optional Redis URL for distributed caching
	CachePrefix    string        `env:"ECD_CACHE_PREFIX" envDefault:"ecd:"` // Redis key prefix

	// Outbound hooks
	RevalidateHookURL string `env:"ECD_REVALIDATE_HOOK_URL"` // Optional CDN/edge revalidation endpoint
	PartnerSyncURL    string `env:"ECD_PARTNER_SYNC_URL"`
	PartnerSyncSecret string `env:"ECD_PARTNER_SYNC_SECRET"`
	// Permit loopback and private targets for both hooks (local or on-prem endpoints)
	OutboundAllowPrivate bool `env:"ECD_OUTBOUND_ALLOW_PRIVATE" envDefault:"false"`

	// GeoIP configuration
	GeoIPDBPath string `env:"ECD_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// PartnerSyncEnabled returns true if registration mirroring is configured.
func (c Config) PartnerSyncEnabled() bool {
	return c.PartnerSyncURL != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("ECD_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("ECD_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(c.SessionSecret) {
		slog.Warn("ECD_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if c.IsProduction() {
		if c.AdminTestMode {
			return errors.New("ECD_ADMIN_TEST_MODE must not be enabled when ECD_ENV=production")
		}
		if c.AdminToken == "" {
			return errors.New("ECD_ADMIN_TOKEN is required when ECD_ENV=production")
		}
	}

	c.SitesDomain = strings.Trim(strings.ToLower(strings.TrimSpace(c.SitesDomain)), ".")
	if c.SitesDomain == "" {
		return errors.New("ECD_SITES_DOMAIN must not be empty")
	}

	if c.TenantCacheTTL <= 0 {
		return fmt.Errorf("ECD_TENANT_CACHE_TTL must be positive, got %s", c.TenantCacheTTL)
	}
	if c.RenderCacheTTL <= 0 {
		return fmt.Errorf("ECD_RENDER_CACHE_TTL must be positive, got %s", c.RenderCacheTTL)
	}

	outbound := util.OutboundURLOptions{AllowPrivate: c.OutboundAllowPrivate}
	for _, hook := range []struct{ name, url string }{
		{"ECD_REVALIDATE_HOOK_URL", c.RevalidateHookURL},
		{"ECD_PARTNER_SYNC_URL", c.PartnerSyncURL},
	} {
		if hook.url == "" {
			continue
		}
		if err := util.ValidateOutboundURL(hook.url, outbound); err != nil {
			return fmt.Errorf("%s: %w", hook.name, err)
		}
	}

	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
