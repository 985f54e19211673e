// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService(t *testing.T) {
	db := testDB(t)
	svc := NewEventService(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base.AddDate(0, 0, -40) }
	require.NoError(t, svc.LogEvent(ctx, "info", "tenant", "old event", nil))
	svc.now = func() time.Time { return base }
	require.NoError(t, svc.LogEvent(ctx, "warning", "cache", "fresh event", map[string]any{"tenant_id": "t1"}))

	events, err := svc.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "fresh event", events[0].Message)
	assert.JSONEq(t, `{"tenant_id":"t1"}`, events[0].Metadata)
	assert.Equal(t, "{}", events[1].Metadata)

	n, err := svc.Prune(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err = svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cache", events[0].Category)
}
