// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/olegiv/ecdsites/internal/store"
)

// Delivery configuration constants
const (
	MaxAttempts    = 5                // Attempts before a delivery is marked dead
	InitialBackoff = 1 * time.Minute  // Initial backoff delay
	MaxBackoff     = 6 * time.Hour    // Maximum backoff delay
	RequestTimeout = 30 * time.Second // HTTP request timeout
	MaxErrorLen    = 1024             // Maximum stored error text
	UserAgent      = "ecdsites-sync/1.0"
)

// Delivery statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusDead      = "dead"
)

// Signature and metadata headers sent with every delivery.
const (
	HeaderSignature  = "X-ECD-Signature"
	HeaderEvent      = "X-ECD-Event"
	HeaderDeliveryID = "X-ECD-Delivery-ID"
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	Success     bool
	StatusCode  int
	Error       error
	ShouldRetry bool
}

// processDelivery attempts one delivery and records the outcome.
func (d *Dispatcher) processDelivery(ctx context.Context, id string) {
	record, err := d.queries.GetSyncDelivery(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			d.logger.Error("failed to get sync delivery", "error", err, "delivery_id", id)
		}
		return
	}

	if record.Status == StatusDelivered || record.Status == StatusDead {
		return
	}
	if record.NextRetryAt.Valid && record.NextRetryAt.Time.After(d.now()) {
		return
	}

	result := d.attemptDelivery(ctx, record)
	now := d.now().UTC()

	if result.Success {
		err = d.queries.MarkSyncDelivered(ctx, store.MarkSyncDeliveredParams{
			ResponseCode: sql.NullInt64{Int64: int64(result.StatusCode), Valid: true},
			DeliveredAt:  sql.NullTime{Time: now, Valid: true},
			UpdatedAt:    now,
			ID:           id,
		})
		if err != nil {
			d.logger.Error("failed to record sync delivery", "error", err, "delivery_id", id)
			return
		}
		d.metrics.SyncDelivery(StatusDelivered)
		d.logger.Info("registration synced",
			"delivery_id", id,
			"registration_id", record.RegistrationID,
			"event", record.Event,
			"status_code", result.StatusCode)
		return
	}

	newAttempts := record.Attempts + 1
	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
		if len(errMsg) > MaxErrorLen {
			errMsg = errMsg[:MaxErrorLen]
		}
	}

	params := store.MarkSyncFailedParams{
		Status:       StatusFailed,
		ResponseCode: sql.NullInt64{Int64: int64(result.StatusCode), Valid: result.StatusCode > 0},
		LastError:    errMsg,
		UpdatedAt:    now,
		ID:           id,
	}

	if !result.ShouldRetry || newAttempts >= MaxAttempts {
		params.Status = StatusDead
		if err := d.queries.MarkSyncFailed(ctx, params); err != nil {
			d.logger.Error("failed to mark sync delivery dead", "error", err, "delivery_id", id)
			return
		}
		d.metrics.SyncDelivery(StatusDead)
		d.logger.Warn("registration sync delivery marked as dead",
			"delivery_id", id,
			"registration_id", record.RegistrationID,
			"attempts", newAttempts,
			"reason", errMsg,
			"category", "sync")
		return
	}

	backoff := calculateBackoff(newAttempts)
	params.NextRetryAt = sql.NullTime{Time: now.Add(backoff), Valid: true}
	if err := d.queries.MarkSyncFailed(ctx, params); err != nil {
		d.logger.Error("failed to schedule sync retry", "error", err, "delivery_id", id)
		return
	}
	d.metrics.SyncDelivery(StatusFailed)
	d.logger.Info("registration sync scheduled for retry",
		"delivery_id", id,
		"attempt", newAttempts,
		"next_retry_at", params.NextRetryAt.Time.Format(time.RFC3339),
		"backoff", backoff.String())
}

// attemptDelivery POSTs the signed payload to the partner endpoint.
func (d *Dispatcher) attemptDelivery(ctx context.Context, record store.SyncDelivery) DeliveryResult {
	if !d.Enabled() {
		return DeliveryResult{Error: errors.New("partner sync URL not configured"), ShouldRetry: true}
	}

	payload := []byte(record.Payload)
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader(HeaderSignature, "sha256="+GenerateSignature(payload, d.cfg.Secret)).
		SetHeader(HeaderEvent, record.Event).
		SetHeader(HeaderDeliveryID, record.ID).
		SetBody(payload).
		Post(d.cfg.URL)
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("request failed: %w", err),
			ShouldRetry: true,
		}
	}

	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return DeliveryResult{Success: true, StatusCode: code}
	case code >= 400 && code < 500:
		// Client errors are permanent except timeouts and throttling.
		return DeliveryResult{
			StatusCode:  code,
			Error:       fmt.Errorf("HTTP %d: %s", code, http.StatusText(code)),
			ShouldRetry: code == http.StatusRequestTimeout || code == http.StatusTooManyRequests,
		}
	default:
		return DeliveryResult{
			StatusCode:  code,
			Error:       fmt.Errorf("HTTP %d: %s", code, http.StatusText(code)),
			ShouldRetry: true,
		}
	}
}

// calculateBackoff calculates the exponential backoff duration for a given attempt.
// Attempt 1 = 1 min, Attempt 2 = 2 min, Attempt 3 = 4 min, Attempt 4 = 8 min, etc.
func calculateBackoff(attempt int64) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	backoff := time.Duration(float64(InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	return backoff
}
