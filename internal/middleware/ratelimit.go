// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultLimiterIdle is how long an unused per-client limiter is kept.
const DefaultLimiterIdle = 10 * time.Minute

// limiterCache hands out one token bucket per key. Buckets expire after
// sitting idle, so the cache stays bounded by the set of recent clients.
type limiterCache struct {
	mu    sync.Mutex
	items *gocache.Cache
	idle  time.Duration
	rate  rate.Limit
	burst int
}

func newLimiterCache(rps float64, burst int, idle time.Duration) *limiterCache {
	if idle <= 0 {
		idle = DefaultLimiterIdle
	}
	return &limiterCache{
		items: gocache.New(idle, idle),
		idle:  idle,
		rate:  rate.Limit(rps),
		burst: burst,
	}
}

// get returns the limiter for key and refreshes its idle timer.
func (lc *limiterCache) get(key string) *rate.Limiter {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if v, ok := lc.items.Get(key); ok {
		limiter := v.(*rate.Limiter)
		lc.items.Set(key, limiter, lc.idle)
		return limiter
	}

	limiter := rate.NewLimiter(lc.rate, lc.burst)
	lc.items.Set(key, limiter, lc.idle)
	return limiter
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	limiters *limiterCache
	logger   *slog.Logger
}

// NewRateLimiter creates a per-IP limiter allowing rps requests per second
// with the given burst.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limiters: newLimiterCache(rps, burst, DefaultLimiterIdle),
		logger:   logger,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiters.get(ip).Allow()
}

// Middleware returns the rate limiting middleware for API routes (returns JSON errors).
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.Allow(ip) {
				rl.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "category", "auth")
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please slow down.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTMLMiddleware limits only POST requests and answers with plain text,
// for form endpoints such as login.
func (rl *RateLimiter) HTMLMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			if !rl.Allow(ip) {
				rl.logger.Warn("form rate limit exceeded", "ip", ip, "path", r.URL.Path, "category", "auth")
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's client address without port. Proxy
// headers are honoured by chi's RealIP middleware earlier in the chain.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ClientIP exposes the client address used for rate limiting.
func ClientIP(r *http.Request) string {
	return clientIP(r)
}
