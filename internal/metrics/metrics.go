// PulseGuard - Real-Time Brand Crisis Detection and Escalation
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulseguard/pulseguard

// Package metrics provides Prometheus instrumentation for the crisis
// pipeline: ingestion throughput, detection latency, crisis lifecycle
// counters, notification outcomes, and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion / detection metrics
	SignalsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signals_ingested_total",
			Help: "Total number of signals accepted by the pipeline",
		},
	)

	SignalsClamped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signals_clamped_total",
			Help: "Total number of signals with out-of-range fields clamped during ingestion",
		},
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_duration_seconds",
			Help:    "Duration of one detection pass (baseline + detectors + lifecycle)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	DetectorTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detector_triggers_total",
			Help: "Total number of detector firings by detector",
		},
		[]string{"detector"}, // volume_spike, negative_sentiment, viral_spread
	)

	// Crisis lifecycle metrics
	CrisesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crises_detected_total",
			Help: "Total number of crises created, by severity",
		},
		[]string{"severity"},
	)

	CrisesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crises_deduplicated_total",
			Help: "Total number of detections suppressed by the cooldown guard",
		},
	)

	CrisesEscalated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crises_escalated_total",
			Help: "Total number of escalations, by priority",
		},
		[]string{"priority"},
	)

	CrisesResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crises_resolved_total",
			Help: "Total number of crises resolved",
		},
	)

	ActiveCrises = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crises_active",
			Help: "Current number of active crises",
		},
	)

	// Rule engine metrics
	RuleMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rule_matches_total",
			Help: "Total number of user rule matches",
		},
	)

	// Notification metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notification deliveries, by notifier and result",
		},
		[]string{"notifier", "result"}, // result: success, failure, rejected
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisis_events_published_total",
			Help: "Total number of events published to the crisis event bus, by topic",
		},
		[]string{"topic"},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordDetection records one detection pass and its firings.
func RecordDetection(duration time.Duration, volume, sentiment, viral bool) {
	DetectionDuration.Observe(duration.Seconds())
	if volume {
		DetectorTriggers.WithLabelValues("volume_spike").Inc()
	}
	if sentiment {
		DetectorTriggers.WithLabelValues("negative_sentiment").Inc()
	}
	if viral {
		DetectorTriggers.WithLabelValues("viral_spread").Inc()
	}
}

// RecordNotification records a notification delivery outcome.
func RecordNotification(notifier string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NotificationsSent.WithLabelValues(notifier, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
