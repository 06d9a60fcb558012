// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes per-query analysis timings and outcomes as
// Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contextgate"

// QueryTimings carries the stage durations of one analysis call.
type QueryTimings struct {
	PatternMatching  time.Duration
	Analysis         time.Duration
	ContextRetrieval time.Duration
	Total            time.Duration
}

// Metrics holds the analysis collectors. All operations are safe for
// concurrent use via Prometheus's internal locking.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal  *prometheus.CounterVec
	stageSeconds  *prometheus.HistogramVec
	confidence    prometheus.Histogram
	tokenEstimate prometheus.Histogram
	// tokenEfficiency is estimated/baseline per query; below 1.0 means
	// the analysis saved tokens over the naive full-context send.
	tokenEfficiency prometheus.Histogram
	fallbacksTotal  *prometheus.CounterVec
	cacheHitsTotal  *prometheus.CounterVec
	breakerOpen     *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	return NewWith(prometheus.NewRegistry())
}

// NewWith creates the collectors on the given registry.
func NewWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Analyzed queries by recommended strategy",
			},
			[]string{"strategy"},
		),
		stageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Per-stage analysis latency",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"stage"},
		),
		confidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "confidence_score",
				Help:      "Final confidence score distribution",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		tokenEstimate: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_estimate",
				Help:      "Recommended token budget per query",
				Buckets:   []float64{25, 50, 100, 200, 400, 800, 1500, 2500, 6000},
			},
		),
		tokenEfficiency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_efficiency",
				Help:      "Estimated tokens divided by the naive baseline",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1.0, 1.5},
			},
		),
		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Fallback results served by level",
			},
			[]string{"level"},
		),
		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_events_total",
				Help:      "Cache lookups by layer and outcome",
			},
			[]string{"layer", "outcome"},
		),
		breakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_open",
				Help:      "1 while a component's circuit breaker is open",
			},
			[]string{"component"},
		),
	}
}

// Registry returns the registry the collectors are registered on, for
// serving via promhttp.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordQuery records the outcome of one analysis call.
func (m *Metrics) RecordQuery(strategy string, timings QueryTimings, confidenceScore float64, tokenEstimate, baselineTokens int) {
	m.queriesTotal.WithLabelValues(strategy).Inc()
	m.stageSeconds.WithLabelValues("pattern_matching").Observe(timings.PatternMatching.Seconds())
	m.stageSeconds.WithLabelValues("analysis").Observe(timings.Analysis.Seconds())
	m.stageSeconds.WithLabelValues("context_retrieval").Observe(timings.ContextRetrieval.Seconds())
	m.stageSeconds.WithLabelValues("total").Observe(timings.Total.Seconds())
	m.confidence.Observe(confidenceScore)
	m.tokenEstimate.Observe(float64(tokenEstimate))
	if baselineTokens > 0 {
		m.tokenEfficiency.Observe(float64(tokenEstimate) / float64(baselineTokens))
	}
}

// RecordFallback counts a served fallback by level.
func (m *Metrics) RecordFallback(level int) {
	m.fallbacksTotal.WithLabelValues(levelLabel(level)).Inc()
}

// RecordCache counts a cache lookup outcome for a layer.
func (m *Metrics) RecordCache(layer string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheHitsTotal.WithLabelValues(layer, outcome).Inc()
}

// SetBreakerOpen reflects a component's breaker state on the gauge.
func (m *Metrics) SetBreakerOpen(component string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	m.breakerOpen.WithLabelValues(component).Set(v)
}

func levelLabel(level int) string {
	switch level {
	case 1:
		return "pattern_reply"
	case 2:
		return "simple_classification"
	case 3:
		return "full_context"
	case 4:
		return "emergency"
	default:
		return "unknown"
	}
}
