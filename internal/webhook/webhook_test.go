// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/testutil"
)

func TestGenerateSignature(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{"empty payload", []byte{}, "secret"},
		{"simple payload", []byte(`{"type":"registration.created"}`), "mysecret"},
		{"empty secret", []byte(`test`), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSignature(tt.payload, tt.secret)
			if len(result) != 64 {
				t.Errorf("GenerateSignature() returned signature with length %d, expected 64", len(result))
			}
			if result2 := GenerateSignature(tt.payload, tt.secret); result != result2 {
				t.Errorf("GenerateSignature() not consistent: %s != %s", result, result2)
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"child_name":"Лерато","notes":"日本語"}`)
	signature := GenerateSignature(payload, "partner-secret")

	if !VerifySignature(payload, signature, "partner-secret") {
		t.Error("VerifySignature() = false for a valid signature")
	}
	if VerifySignature(payload, signature, "wrong-secret") {
		t.Error("VerifySignature() should return false with wrong secret")
	}

	for _, sig := range []string{"", "not-hex", strings.Repeat("0", 64)} {
		if VerifySignature(payload, sig, "partner-secret") {
			t.Errorf("VerifySignature(%q) = true, want false", sig)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt  int64
		expected time.Duration
	}{
		{0, 1 * time.Minute},
		{1, 1 * time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{9, 256 * time.Minute},
		{10, MaxBackoff},
		{40, MaxBackoff},
	}

	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt); got != tt.expected {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestNewRegistrationData(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := store.RegistrationRequest{
		ID:             "r1",
		TenantID:       "t1",
		GuardianName:   "Naledi",
		GuardianEmail:  "naledi@example.com",
		ChildName:      "Kea",
		ChildBirthDate: time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC),
		PreferredStart: sql.NullTime{Time: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), Valid: true},
		Status:         "pending",
		CreatedAt:      created,
	}

	data := NewRegistrationData(r, "sunshine")
	assert.Equal(t, "2023-05-17", data.ChildBirthDate)
	assert.Equal(t, "2026-01-12", data.PreferredStart)
	assert.Equal(t, "sunshine", data.CentreSlug)
	assert.Nil(t, data.PaymentVerifiedAt)
}

// newDelivery inserts a registration and a pending outbox row.
func newDelivery(t *testing.T, db *sql.DB) store.SyncDelivery {
	t.Helper()
	ctx := context.Background()
	q := store.New(db)
	tenant := testutil.CreateTenant(t, db, "sunshine-"+uuid.NewString()[:8])
	now := time.Now().UTC()

	reg, err := q.CreateRegistration(ctx, store.CreateRegistrationParams{
		ID:             uuid.NewString(),
		TenantID:       tenant.ID,
		GuardianName:   "Naledi",
		GuardianEmail:  "naledi@example.com",
		ChildName:      "Kea",
		ChildBirthDate: time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	payload, err := json.Marshal(NewEvent(EventRegistrationCreated, NewRegistrationData(reg, tenant.Slug)))
	require.NoError(t, err)

	d, err := q.CreateSyncDelivery(ctx, store.CreateSyncDeliveryParams{
		ID:             uuid.NewString(),
		RegistrationID: reg.ID,
		Event:          EventRegistrationCreated,
		Payload:        string(payload),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)
	return d
}

func newTestDispatcher(db *sql.DB, url string) *Dispatcher {
	return NewDispatcher(db, testutil.TestLoggerSilent(), nil, Config{
		URL:          url,
		Secret:       "partner-secret",
		Workers:      2,
		Timeout:      2 * time.Second,
		AllowPrivate: true,
	})
}

func TestProcessDeliverySuccess(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	var gotSig, gotEvent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotEvent.Store(r.Header.Get(HeaderEvent))
		ok := VerifySignature(body, strings.TrimPrefix(r.Header.Get(HeaderSignature), "sha256="), "partner-secret")
		gotSig.Store(ok)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	delivery := newDelivery(t, db)
	d := newTestDispatcher(db, srv.URL)
	d.processDelivery(context.Background(), delivery.ID)

	got, err := store.New(db).GetSyncDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.Equal(t, int64(1), got.Attempts)
	assert.True(t, got.DeliveredAt.Valid)
	assert.Equal(t, int64(200), got.ResponseCode.Int64)
	assert.Equal(t, true, gotSig.Load(), "signature must verify with the shared secret")
	assert.Equal(t, EventRegistrationCreated, gotEvent.Load())
}

func TestProcessDeliveryRetriesThenDies(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	delivery := newDelivery(t, db)
	d := newTestDispatcher(db, srv.URL)
	q := store.New(db)
	ctx := context.Background()

	clock := time.Now()
	d.now = func() time.Time { return clock }

	for attempt := 1; attempt < MaxAttempts; attempt++ {
		d.processDelivery(ctx, delivery.ID)
		got, err := q.GetSyncDelivery(ctx, delivery.ID)
		require.NoError(t, err)
		require.Equal(t, StatusFailed, got.Status, "attempt %d", attempt)
		require.Equal(t, int64(attempt), got.Attempts)
		require.True(t, got.NextRetryAt.Valid)
		assert.Contains(t, got.LastError, "502")

		// Not due yet: a second call must not attempt again.
		d.processDelivery(ctx, delivery.ID)
		again, _ := q.GetSyncDelivery(ctx, delivery.ID)
		require.Equal(t, got.Attempts, again.Attempts)

		clock = got.NextRetryAt.Time.Add(time.Second)
	}

	d.processDelivery(ctx, delivery.ID)
	got, err := q.GetSyncDelivery(ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, got.Status)
	assert.Equal(t, int64(MaxAttempts), got.Attempts)
}

func TestProcessDeliveryClientErrorIsPermanent(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	delivery := newDelivery(t, db)
	newTestDispatcher(db, srv.URL).processDelivery(context.Background(), delivery.ID)

	got, err := store.New(db).GetSyncDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, got.Status)
	assert.Equal(t, int64(422), got.ResponseCode.Int64)
}

func TestSweepSkipsWhenDisabled(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	newDelivery(t, db)
	d := newTestDispatcher(db, "")
	n, err := d.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepDoesNotQueueInFlight(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	newDelivery(t, db)
	d := newTestDispatcher(db, "http://partner.invalid")

	n, err := d.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = d.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "queued delivery must not be queued twice")
}

func TestDispatcherLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)

	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	delivery := newDelivery(t, db)
	d := newTestDispatcher(db, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	d.Start(ctx) // second start is a no-op
	d.Notify()
	d.Notify()

	require.Eventually(t, func() bool {
		got, err := store.New(db).GetSyncDelivery(context.Background(), delivery.ID)
		return err == nil && got.Status == StatusDelivered
	}, 5*time.Second, 20*time.Millisecond)

	d.Stop()
	d.Stop()
	assert.Equal(t, int32(1), hits.Load())
}

func TestDispatcherRestart(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)

	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := newTestDispatcher(db, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	d.Stop()

	delivery := newDelivery(t, db)
	d.Start(ctx)
	d.Notify()

	require.Eventually(t, func() bool {
		got, err := store.New(db).GetSyncDelivery(context.Background(), delivery.ID)
		return err == nil && got.Status == StatusDelivered
	}, 5*time.Second, 20*time.Millisecond, "restarted workers deliver")

	require.NotPanics(t, d.Stop)
	require.NotPanics(t, d.Stop)
}
