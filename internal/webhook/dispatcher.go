// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/olegiv/ecdsites/internal/metrics"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/util"
)

// Dispatcher delivers outbox rows to the partner system with a worker pool.
type Dispatcher struct {
	queries *store.Queries
	logger  *slog.Logger
	metrics *metrics.Metrics
	client  *resty.Client
	cfg     Config
	now     func() time.Time

	queue    chan string
	wake     chan struct{}
	wg       sync.WaitGroup
	done     chan struct{}
	mu       sync.RWMutex
	running  bool
	inFlight map[string]struct{}
}

// Config holds dispatcher configuration.
type Config struct {
	URL          string        // Partner endpoint; empty disables delivery
	Secret       string        // HMAC-SHA256 signing secret
	Workers      int           // Number of concurrent delivery workers
	QueueSize    int           // Buffered delivery ids
	BatchSize    int           // Due deliveries fetched per sweep
	Timeout      time.Duration // HTTP request timeout
	AllowPrivate bool          // Permit private/loopback targets (tests, on-prem partners)
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   3,
		QueueSize: 100,
		BatchSize: 50,
		Timeout:   RequestTimeout,
	}
}

// NewDispatcher creates a new partner sync dispatcher.
func NewDispatcher(db *sql.DB, logger *slog.Logger, m *metrics.Metrics, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", UserAgent)
	if !cfg.AllowPrivate {
		client.SetTransport(util.SSRFSafeTransport())
	}

	return &Dispatcher{
		queries:  store.New(db),
		logger:   logger,
		metrics:  m,
		client:   client,
		cfg:      cfg,
		now:      time.Now,
		queue:    make(chan string, cfg.QueueSize),
		wake:     make(chan struct{}, 1),
		inFlight: make(map[string]struct{}),
	}
}

// Enabled reports whether a partner endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.URL != ""
}

// Start starts the sweeper and delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	done := make(chan struct{})
	d.done = done
	d.mu.Unlock()

	d.logger.Info("starting partner sync dispatcher", "workers", d.cfg.Workers, "enabled", d.Enabled())

	d.wg.Add(1)
	go d.sweeper(ctx, done)

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, done, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish. A stopped
// dispatcher can be started again.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	done := d.done
	d.mu.Unlock()

	d.logger.Info("stopping partner sync dispatcher")
	close(done)
	d.wg.Wait()
	d.client.GetClient().CloseIdleConnections()
	d.logger.Info("partner sync dispatcher stopped")
}

// Notify asks the dispatcher to look for due deliveries. It never blocks.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Sweep queues due deliveries that are not already in flight and returns
// how many were queued. The scheduler calls it periodically so retries and
// deliveries that overflowed the queue are picked up.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	if !d.Enabled() {
		return 0, nil
	}

	due, err := d.queries.ListDueSyncDeliveries(ctx, store.ListDueSyncDeliveriesParams{
		Now:   d.now().UTC(),
		Limit: int64(d.cfg.BatchSize),
	})
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, row := range due {
		if !d.claim(row.ID) {
			continue
		}
		select {
		case d.queue <- row.ID:
			queued++
		default:
			d.release(row.ID)
			d.logger.Warn("sync queue full, delivery will be retried later", "delivery_id", row.ID, "category", "sync")
			return queued, nil
		}
	}
	return queued, nil
}

func (d *Dispatcher) sweeper(ctx context.Context, done <-chan struct{}) {
	defer d.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-d.wake:
			if _, err := d.Sweep(ctx); err != nil {
				d.logger.Error("sync sweep failed", "error", err, "category", "sync")
			}
		}
	}
}

// worker processes queued deliveries.
func (d *Dispatcher) worker(ctx context.Context, done <-chan struct{}, id int) {
	defer d.wg.Done()
	d.logger.Debug("sync worker started", "worker_id", id)

	for {
		select {
		case <-done:
			d.logger.Debug("sync worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			return
		case deliveryID := <-d.queue:
			d.processDelivery(ctx, deliveryID)
			d.release(deliveryID)
		}
	}
}

func (d *Dispatcher) claim(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[id]; busy {
		return false
	}
	d.inFlight[id] = struct{}{}
	return true
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	delete(d.inFlight, id)
	d.mu.Unlock()
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
