// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exposes Prometheus counters for tenant resolution, page
// rendering, cache invalidation, partner sync and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution results.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultNotFound = "not_found"
	ResultError    = "error"
	ResultOK       = "ok"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	tenantResolutions  *prometheus.CounterVec
	pageRenders        *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	syncDeliveries     *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers the collectors with a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: gatherer,
		tenantResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecd_tenant_resolutions_total",
			Help: "Tenant resolutions by host, partitioned by cache hit, store lookup, not found and error",
		}, []string{"result"}),
		pageRenders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecd_page_renders_total",
			Help: "Public page renders by result",
		}, []string{"result"}),
		cacheInvalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecd_cache_invalidations_total",
			Help: "Rendered page invalidations by result",
		}, []string{"result"}),
		syncDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecd_sync_deliveries_total",
			Help: "Partner sync delivery attempts by outcome",
		}, []string{"status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecd_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecd_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// TenantResolution records one ResolveByHost outcome.
func (m *Metrics) TenantResolution(result string) {
	if m == nil {
		return
	}
	m.tenantResolutions.WithLabelValues(result).Inc()
}

// PageRender records one public render outcome.
func (m *Metrics) PageRender(result string) {
	if m == nil {
		return
	}
	m.pageRenders.WithLabelValues(result).Inc()
}

// CacheInvalidation records one invalidation outcome.
func (m *Metrics) CacheInvalidation(result string) {
	if m == nil {
		return
	}
	m.cacheInvalidations.WithLabelValues(result).Inc()
}

// SyncDelivery records one delivery attempt outcome.
func (m *Metrics) SyncDelivery(status string) {
	if m == nil {
		return
	}
	m.syncDeliveries.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests and observes latency labelled with the chi
// route pattern, which keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
