// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if ECD_TEST_REDIS_URL is not set.
func skipIfNoRedis(t *testing.T) string {
	t.Helper()
	url := os.Getenv("ECD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: ECD_TEST_REDIS_URL not set")
	}
	return url
}

func TestRedisCache_Basic(t *testing.T) {
	url := skipIfNoRedis(t)

	cache, err := NewRedisCacheFromURL(url, "ecd-test:", time.Minute)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	defer func() { _ = cache.Close() }()

	ctx := context.Background()
	_ = cache.Clear(ctx)

	if err := cache.Set(ctx, "tenant:acme.example.com", []byte("t-1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "tenant:acme.example.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "t-1" {
		t.Errorf("Get returned %q, want %q", got, "t-1")
	}

	if err := cache.DeleteByPrefix(ctx, "tenant:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if _, err := cache.Get(ctx, "tenant:acme.example.com"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after DeleteByPrefix = %v, want ErrCacheMiss", err)
	}
}

func TestNewRedisCache_RequiresURL(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{}); err == nil {
		t.Error("NewRedisCache with empty URL should fail")
	}
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{URL: "not-a-url"}); err == nil {
		t.Error("NewRedisCache with invalid URL should fail")
	}
}

func TestNew_FallsBackToMemory(t *testing.T) {
	c := New(Config{
		RedisURL:   "redis://127.0.0.1:1/0",
		DefaultTTL: time.Minute,
	}, discardLogger())
	defer func() { _ = c.Close() }()

	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("New() = %T, want *MemoryCache", c)
	}
}
