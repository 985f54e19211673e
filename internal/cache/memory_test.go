// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", string(val))
	}

	has, err := cache.Has(ctx, "key1")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !has {
		t.Error("expected key1 to exist")
	}

	if err := cache.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "key1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_ReturnsCopy(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	value := []byte("abc")
	_ = cache.Set(ctx, "k", value, 0)
	value[0] = 'x'

	got, _ := cache.Get(ctx, "k")
	got[1] = 'y'

	again, _ := cache.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("cached value = %q, want %q", again, "abc")
	}
}

func TestMemoryCache_ExpiresAtTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: 5 * time.Minute, Now: clock.Now})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "host", []byte("tenant-1"), 0)

	clock.Advance(5*time.Minute - time.Nanosecond)
	if _, err := cache.Get(ctx, "host"); err != nil {
		t.Fatalf("Get just before TTL: %v", err)
	}

	clock.Advance(time.Nanosecond)
	if _, err := cache.Get(ctx, "host"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get at TTL = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_CustomTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, Now: clock.Now})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("value"), time.Minute)
	_ = cache.Set(ctx, "default", []byte("value"), 0)

	clock.Advance(2 * time.Minute)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected short TTL key to expire, got %v", err)
	}
	if _, err := cache.Get(ctx, "default"); err != nil {
		t.Error("expected default TTL key to still exist")
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, Now: clock.Now})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), 0)
	_ = cache.Set(ctx, "b", []byte("2"), time.Hour)
	clock.Advance(2 * time.Minute)

	if removed := cache.RemoveExpired(); removed != 1 {
		t.Errorf("RemoveExpired() = %d, want 1", removed)
	}
	if stats := cache.Stats(); stats.Items != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v, want 1 item of 1 byte", stats)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "render:t1:/", []byte("home"), 0)
	_ = cache.Set(ctx, "render:t1:/about", []byte("about"), 0)
	_ = cache.Set(ctx, "render:t2:/", []byte("other"), 0)

	if err := cache.DeleteByPrefix(ctx, "render:t1:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	for _, key := range []string{"render:t1:/", "render:t1:/about"} {
		if _, err := cache.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("expected %s to be deleted", key)
		}
	}
	if _, err := cache.Get(ctx, "render:t2:/"); err != nil {
		t.Error("expected render:t2:/ to still exist")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	for _, key := range []string{"key1", "key2", "key3"} {
		_ = cache.Set(ctx, key, []byte("v"), 0)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if stats := cache.Stats(); stats.Items != 0 {
		t.Errorf("Items = %d, want 0", stats.Items)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "key1", []byte("value1"), 0)
	_ = cache.Set(ctx, "key2", []byte("value2"), 0)
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "nonexistent")

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Sets != 2 {
		t.Errorf("expected 2 sets, got %d", stats.Sets)
	}
	if stats.Items != 2 {
		t.Errorf("expected 2 items, got %d", stats.Items)
	}

	cache.ResetStats()
	if stats := cache.Stats(); stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("stats after reset = %+v", stats)
	}
}

func TestMemoryCache_Closed(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	_ = cache.Close()
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after Close = %v, want ErrCacheClosed", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after Close = %v, want ErrCacheClosed", err)
	}
	// Second close is a no-op.
	if err := cache.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestMemoryCache_CleanupLoopStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	cache := NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      time.Millisecond,
		CleanupInterval: 5 * time.Millisecond,
	})
	_ = cache.Set(context.Background(), "k", []byte("v"), 0)

	deadline := time.Now().Add(time.Second)
	for cache.Stats().Items > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if items := cache.Stats().Items; items != 0 {
		t.Errorf("cleanup loop left %d items", items)
	}

	_ = cache.Close()
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%5))
			for range 100 {
				_ = cache.Set(ctx, key, []byte{byte(n)}, 0)
				_, _ = cache.Get(ctx, key)
				_ = cache.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
