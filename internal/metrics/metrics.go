// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package metrics defines the Prometheus collectors for Vitrine and thin
// record helpers so callers never touch label plumbing directly.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_http_requests_total",
			Help: "Total HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency per path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitrine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SubscriptionsTotal counts subscription attempts by outcome of the
	// mailing-list relay.
	SubscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_subscriptions_total",
			Help: "Subscription form submissions",
		},
		[]string{"mailer_outcome"},
	)

	// VisitorHitsTotal counts tracking hits by kind (new, returning, alerting).
	VisitorHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_visitor_hits_total",
			Help: "Visitor tracking hits",
		},
		[]string{"kind"},
	)

	// NotificationsTotal counts webhook notification outcomes.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_notifications_total",
			Help: "Webhook notification dispatch outcomes",
		},
		[]string{"path", "outcome"},
	)

	// GeoLookupsTotal counts geolocation lookup outcomes.
	GeoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_geo_lookups_total",
			Help: "Geolocation lookup outcomes",
		},
		[]string{"outcome"},
	)

	// DBErrors counts swallowed persistence errors by operation, the only
	// place they remain visible after being masked from clients.
	DBErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_db_errors_total",
			Help: "Database errors recovered without failing the request",
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records one completed request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordNotification records one dispatch outcome: delivered, failed, or
// skipped (no webhook configured).
func RecordNotification(path, outcome string) {
	NotificationsTotal.WithLabelValues(path, outcome).Inc()
}

// RecordDBError records a swallowed persistence error.
func RecordDBError(operation string) {
	DBErrors.WithLabelValues(operation).Inc()
}
