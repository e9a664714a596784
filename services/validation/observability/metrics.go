// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the validation
// pipeline.
//
// # Description
//
// Metrics cover validation outcomes, per-stage latency and timeouts,
// fingerprint cache effectiveness, and crisis detections. Expose them
// via the /metrics endpoint and scrape with Prometheus.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "emberguard"

const validationSubsystem = "validation"

// ValidationMetrics holds all Prometheus metrics for the pipeline.
//
// # Description
//
// Initialize once at startup via InitMetrics(); registering twice
// panics on duplicate registration, which is the Prometheus default
// behavior and deliberate here.
type ValidationMetrics struct {
	// ValidationsTotal counts finished validation runs.
	// Labels: status (completed, timed_out, failed), action
	ValidationsTotal *prometheus.CounterVec

	// StageDurationSeconds measures individual stage latency.
	// Labels: stage, status (ok, timed_out, errored)
	StageDurationSeconds *prometheus.HistogramVec

	// StageTimeoutsTotal counts stages cut off by their deadline.
	// Labels: stage
	StageTimeoutsTotal *prometheus.CounterVec

	// CacheHitsTotal and CacheMissesTotal count fingerprint cache
	// lookups.
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// CacheStoreErrorsTotal counts store failures that degraded to a
	// miss or no-op.
	CacheStoreErrorsTotal prometheus.Counter

	// CrisisEventsTotal counts crisis detections by merged level.
	// Labels: level (moderate, high, severe, critical)
	CrisisEventsTotal *prometheus.CounterVec

	// ActiveValidations tracks currently running validations.
	ActiveValidations prometheus.Gauge
}

// DefaultMetrics is the singleton instance, initialized by
// InitMetrics().
var DefaultMetrics *ValidationMetrics

// InitMetrics creates and registers all pipeline metrics on the
// default registry. Call once at application startup.
func InitMetrics() *ValidationMetrics {
	DefaultMetrics = &ValidationMetrics{
		ValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "validations_total",
				Help:      "Total finished validation runs by status and action",
			},
			[]string{"status", "action"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Individual stage latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"stage", "status"},
		),

		StageTimeoutsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "stage_timeouts_total",
				Help:      "Total stages cut off by their deadline",
			},
			[]string{"stage"},
		),

		CacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "cache_hits_total",
				Help:      "Total fingerprint cache hits",
			},
		),

		CacheMissesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "cache_misses_total",
				Help:      "Total fingerprint cache misses",
			},
		),

		CacheStoreErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "cache_store_errors_total",
				Help:      "Total cache store failures degraded to miss or no-op",
			},
		),

		CrisisEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "crisis_events_total",
				Help:      "Total crisis detections by merged crisis level",
			},
			[]string{"level"},
		),

		ActiveValidations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "active_validations",
				Help:      "Number of currently running validations",
			},
		),
	}

	return DefaultMetrics
}
