// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package metrics defines the Prometheus collectors of the personalization
// engine. Collectors are registered on the default registry at init and
// exposed by the HTTP transport on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Serving

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Recommendation queries answered, by target type, sort and personalization",
		},
		[]string{"target_type", "sort_by", "personalized"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "Latency of recommendation queries",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"target_type"},
	)

	RecommendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_fallbacks_total",
			Help: "Queries answered by the popularity fallback, by reason code",
		},
		[]string{"reason"},
	)

	RecommendCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss, expired, error)",
		},
		[]string{"outcome"},
	)

	// Interaction recording

	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_events_recorded_total",
			Help: "Interaction events durably appended, by event type",
		},
		[]string{"event_type"},
	)

	InteractionsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interaction_events_deduplicated_total",
			Help: "Interaction events dropped as repeats inside the dedup window",
		},
	)

	InteractionsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_events_dropped_total",
			Help: "Interaction events dropped before persistence, by reason",
		},
		[]string{"reason"},
	)

	InteractionQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interaction_queue_depth",
			Help: "Interaction events waiting to be persisted",
		},
	)

	// Training

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Training runs by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of training runs",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 300, 900, 1800},
		},
		[]string{"model"},
	)

	ModelVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Version of the live model by type",
		},
		[]string{"model"},
	)

	ModelHeldOutError = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_heldout_error",
			Help: "Held-out prediction error of the live collaborative model",
		},
	)

	ModelEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_entities",
			Help: "Entities covered by the live models, by model and kind",
		},
		[]string{"model", "kind"},
	)

	// HTTP transport

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Catalog

	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Catalog collaborator calls by operation and outcome (ok, error, rejected, stale)",
		},
		[]string{"operation", "outcome"},
	)

	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_circuit_breaker_state",
			Help: "Catalog circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	// Analytics bus

	AnalyticsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_messages_published_total",
			Help: "Analytics messages published, by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)
)

// RecordRecommendation records one answered query.
func RecordRecommendation(targetType, sortBy string, personalized bool, reason string, duration time.Duration) {
	RecommendRequests.WithLabelValues(targetType, sortBy, strconv.FormatBool(personalized)).Inc()
	RecommendDuration.WithLabelValues(targetType).Observe(duration.Seconds())
	if !personalized && reason != "" {
		RecommendFallbacks.WithLabelValues(reason).Inc()
	}
}

// RecordTrainingRun records the outcome and duration of a training run.
func RecordTrainingRun(model, outcome string, duration time.Duration) {
	TrainingRuns.WithLabelValues(model, outcome).Inc()
	if duration > 0 {
		TrainingDuration.WithLabelValues(model).Observe(duration.Seconds())
	}
}

// RecordPublishedModel updates the live model gauges.
func RecordPublishedModel(model string, version int64, actors, items int) {
	ModelVersion.WithLabelValues(model).Set(float64(version))
	ModelEntities.WithLabelValues(model, "actors").Set(float64(actors))
	ModelEntities.WithLabelValues(model, "items").Set(float64(items))
}

// RecordAnalyticsPublish counts one analytics publish attempt.
func RecordAnalyticsPublish(topic string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	AnalyticsPublished.WithLabelValues(topic, outcome).Inc()
}

// RecordAnalyticsDropped counts an analytics message discarded because the
// outbound queue was full.
func RecordAnalyticsDropped(topic string) {
	AnalyticsPublished.WithLabelValues(topic, "dropped").Inc()
}

// RecordHTTPRequest records one handled HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}
