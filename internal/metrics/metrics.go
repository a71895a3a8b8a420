// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transport metrics
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsps_messages_received_total",
			Help: "Total number of GSPS messages received by type",
		},
		[]string{"type"}, // "start", "data", "end", "unknown"
	)

	MessagesInvalid = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsps_messages_invalid_total",
			Help: "Total number of messages that could not be handled",
		},
		[]string{"reason"}, // "decode", "panic"
	)

	MessagesPoisoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gsps_messages_poisoned_total",
			Help: "Total number of messages forwarded to the poison subject",
		},
	)

	// Session metrics
	SessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gsps_sessions_open",
			Help: "Current number of open sessions",
		},
	)

	SessionsReplaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gsps_sessions_replaced_total",
			Help: "Total number of open sessions discarded by a repeated start",
		},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gsps_sessions_expired_total",
			Help: "Total number of sessions evicted after the idle timeout",
		},
	)

	SessionsAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gsps_sessions_abandoned_total",
			Help: "Total number of sessions still open at shutdown",
		},
	)

	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsps_sessions_completed_total",
			Help: "Total number of finalized sessions by outcome",
		},
		[]string{"outcome"}, // "published", "failed", "empty"
	)

	RowsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gsps_rows_discarded_total",
			Help: "Total number of data rows for unknown sessions",
		},
	)

	// Publish metrics
	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gsps_publish_duration_seconds",
			Help:    "Duration of assemble, encode and move for one dataset",
			Buckets: prometheus.DefBuckets,
		},
	)

	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsps_publish_errors_total",
			Help: "Total number of publish failures by stage",
		},
		[]string{"stage"}, // "assemble", "metadata", "encode", "mkdir", "move", "catalog"
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gsps_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Dead-letter metrics
	DeadLetterEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gsps_deadletter_entries",
			Help: "Current number of datasets in the dead-letter store",
		},
	)

	DeadLetterAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gsps_deadletter_added_total",
			Help: "Total number of datasets stored for replay",
		},
	)

	DeadLetterReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsps_deadletter_replays_total",
			Help: "Total number of dead-letter replay attempts by outcome",
		},
		[]string{"outcome"}, // "submitted", "queue_full", "exhausted"
	)

	// Catalog metrics
	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gsps_catalog_query_duration_seconds",
			Help:    "Duration of DuckDB catalog queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsps_catalog_query_errors_total",
			Help: "Total number of DuckDB catalog query errors",
		},
		[]string{"operation"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsps_api_requests_total",
			Help: "Total number of ops API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gsps_api_request_duration_seconds",
			Help:    "Duration of ops API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gsps_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordMessage counts one received message.
func RecordMessage(messageType string) {
	MessagesReceived.WithLabelValues(messageType).Inc()
}

// RecordInvalidMessage counts a message the router could not handle.
func RecordInvalidMessage(reason string) {
	MessagesInvalid.WithLabelValues(reason).Inc()
}

// RecordCompletion counts a finalized session by outcome.
func RecordCompletion(outcome string) {
	SessionsCompleted.WithLabelValues(outcome).Inc()
}

// RecordPublish observes a successful publish.
func RecordPublish(duration time.Duration) {
	PublishDuration.Observe(duration.Seconds())
	SessionsCompleted.WithLabelValues("published").Inc()
}

// RecordPublishError counts a failed publish at stage.
func RecordPublishError(stage string) {
	PublishErrors.WithLabelValues(stage).Inc()
	SessionsCompleted.WithLabelValues("failed").Inc()
}

// SetBreakerState records a breaker transition. state follows gobreaker's
// ordering: closed, half-open, open.
func SetBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCatalogQuery records a catalog query metric
func RecordCatalogQuery(operation string, duration time.Duration, err error) {
	CatalogQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		CatalogQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordReplay counts one dead-letter replay decision.
func RecordReplay(outcome string) {
	DeadLetterReplays.WithLabelValues(outcome).Inc()
}
