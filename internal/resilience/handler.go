// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resilience

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesselai/contextgate/internal/cache"
)

// Config holds the error-handling knobs. Zero values select defaults.
type Config struct {
	// ErrorThreshold is the consecutive error count that opens a breaker.
	ErrorThreshold int `yaml:"error-threshold" json:"error_threshold"`
	// OpenTimeout is how long an open breaker rejects calls.
	OpenTimeout time.Duration `yaml:"open-timeout" json:"open_timeout"`
	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `yaml:"max-retries" json:"max_retries"`
	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration `yaml:"retry-backoff" json:"retry_backoff"`
	// FallbackCacheTTL is how long degraded results are reused.
	FallbackCacheTTL time.Duration `yaml:"fallback-cache-ttl" json:"fallback_cache_ttl"`
}

// Handler wraps component calls in circuit breakers and serves the
// fallback hierarchy when they fail.
type Handler struct {
	cfg      Config
	breakers *BreakerSet
	matcher  patternReplier
	cache    *cache.Manager
	logger   *logrus.Logger

	fallbackCount  int64
	shortCircuits  int64
	retriesCounted int64
}

// NewHandler creates a Handler. The matcher and cache are optional; a nil
// matcher skips the level-1 rung and a nil cache disables fallback reuse.
func NewHandler(cfg Config, matcher patternReplier, cacheManager *cache.Manager, logger *logrus.Logger) *Handler {
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = defaultErrorThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.FallbackCacheTTL <= 0 {
		cfg.FallbackCacheTTL = defaultFallbackTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		cfg:      cfg,
		breakers: NewBreakerSet(cfg.ErrorThreshold, cfg.OpenTimeout),
		matcher:  matcher,
		cache:    cacheManager,
		logger:   logger,
	}
}

// Breaker exposes the breaker for a component, creating it on first use.
func (h *Handler) Breaker(component string) *Breaker { return h.breakers.For(component) }

// Guard runs fn under the component's circuit breaker. Panics become logic
// errors, transient failures are retried with exponential backoff, and the
// breaker is fed the final outcome. The returned error, if any, is a
// *ClassifiedError (or ErrCircuitOpen when short-circuited).
func (h *Handler) Guard(ctx context.Context, component string, fn func(context.Context) error) error {
	breaker := h.breakers.For(component)
	if !breaker.Allow() {
		atomic.AddInt64(&h.shortCircuits, 1)
		return ErrCircuitOpen
	}

	err := h.runOnce(ctx, fn)
	for attempt := 1; err != nil && Classify(err) == CategoryTransient && attempt < h.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		backoff := h.cfg.RetryBackoff << (attempt - 1)
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(backoff):
			atomic.AddInt64(&h.retriesCounted, 1)
			err = h.runOnce(ctx, fn)
		}
	}

	if err == nil {
		breaker.RecordSuccess()
		return nil
	}

	breaker.RecordFailure()
	cat := Classify(err)
	entry := h.logger.WithFields(logrus.Fields{
		"component": component,
		"category":  cat,
	})
	switch cat {
	case CategoryLogic:
		entry.Warn("component defect during analysis")
	case CategoryAuth:
		entry.Error("permission failure escalated")
	default:
		entry.Debug("component call failed")
	}
	return &ClassifiedError{Component: component, Category: cat, Err: err}
}

func (h *Handler) runOnce(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nil pointer or invalid state: panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Fallback walks the hierarchy for a failed component and returns the
// first rung that can serve the query. It never returns nil.
func (h *Handler) Fallback(component, query string) *FallbackResult {
	atomic.AddInt64(&h.fallbackCount, 1)

	key := fallbackCacheKey(component, query)
	if h.cache != nil {
		if v, ok := h.cache.Get(cache.LayerResult, key); ok {
			if res, ok := v.(*FallbackResult); ok {
				cached := *res
				cached.Cached = true
				return &cached
			}
		}
	}

	res := h.buildFallback(component, query)
	if h.cache != nil {
		if err := h.cache.SetWithTTL(cache.LayerResult, key, res, h.cfg.FallbackCacheTTL); err != nil {
			h.logger.WithError(err).Debug("fallback cache write failed")
		}
	}
	return res
}

func (h *Handler) buildFallback(component, query string) *FallbackResult {
	if query == "" {
		return h.emergency(component)
	}

	// Level 1: canned pattern reply.
	if h.matcher != nil {
		if match := h.matcher.Match(query); match.Matched {
			return &FallbackResult{
				Level:         LevelPatternReply,
				Component:     component,
				QueryType:     match.QueryType,
				Strategy:      "cached_response",
				Response:      match.FallbackResponse,
				TokenEstimate: match.EstimatedTokens,
				Confidence:    match.Confidence,
			}
		}
	}

	// Level 2: crude regex classification.
	if queryType, tokens := classifyCrudely(query); queryType != "" {
		strategy := "minimal_context"
		if queryType == "MEDIUM" {
			strategy = "technical_context"
		}
		return &FallbackResult{
			Level:         LevelSimpleClassification,
			Component:     component,
			QueryType:     queryType,
			Strategy:      strategy,
			TokenEstimate: tokens,
			Confidence:    0.5,
		}
	}

	// Level 3: give up on classification, signal full-context processing.
	return &FallbackResult{
		Level:         LevelFullContext,
		Component:     component,
		QueryType:     "COMPLEX",
		Strategy:      "comprehensive_analysis",
		TokenEstimate: fullContextTokens,
		Confidence:    0.3,
	}
}

func (h *Handler) emergency(component string) *FallbackResult {
	return &FallbackResult{
		Level:         LevelEmergency,
		Component:     component,
		QueryType:     "SIMPLE",
		Strategy:      "emergency_fallback",
		TokenEstimate: emergencyTokens,
		Confidence:    0.1,
	}
}

// Emergency returns the level-4 minimal result directly, bypassing the
// ladder. The engine uses it as the answer of last resort.
func (h *Handler) Emergency(component string) *FallbackResult {
	atomic.AddInt64(&h.fallbackCount, 1)
	return h.emergency(component)
}

// ComponentHealth is one row of the health feed.
type ComponentHealth struct {
	ComponentName string `json:"component_name"`
	Status        string `json:"status"`
	ErrorCount    int64  `json:"error_count"`
	SuccessCount  int64  `json:"success_count"`
}

// Health reports per-component status derived from the breakers: "error"
// while a breaker is open, "degraded" once errors have been seen, and
// "healthy" otherwise.
func (h *Handler) Health() []ComponentHealth {
	snaps := h.breakers.Snapshots()
	out := make([]ComponentHealth, 0, len(snaps))
	for _, s := range snaps {
		status := "healthy"
		switch {
		case s.State != StateClosed:
			status = "error"
		case s.ErrorCount > 0:
			status = "degraded"
		}
		out = append(out, ComponentHealth{
			ComponentName: s.Name,
			Status:        status,
			ErrorCount:    s.ErrorCount,
			SuccessCount:  s.SuccessCount,
		})
	}
	return out
}

// GetMetrics returns fallback and breaker counters.
func (h *Handler) GetMetrics() map[string]interface{} {
	states := make(map[string]string)
	for _, s := range h.breakers.Snapshots() {
		states[s.Name] = string(s.State)
	}
	return map[string]interface{}{
		"fallback_count": atomic.LoadInt64(&h.fallbackCount),
		"short_circuits": atomic.LoadInt64(&h.shortCircuits),
		"retries":        atomic.LoadInt64(&h.retriesCounted),
		"breaker_states": states,
	}
}
