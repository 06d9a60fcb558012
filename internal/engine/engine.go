// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package engine orchestrates the full analysis pipeline: pattern fast
// path, classification, concurrent intent analysis, conditional context
// retrieval and final confidence scoring, every stage guarded by a
// circuit breaker.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tesselai/contextgate/internal/analyzers"
	"github.com/tesselai/contextgate/internal/cache"
	"github.com/tesselai/contextgate/internal/chat"
	"github.com/tesselai/contextgate/internal/classifier"
	"github.com/tesselai/contextgate/internal/confidence"
	"github.com/tesselai/contextgate/internal/metrics"
	"github.com/tesselai/contextgate/internal/patterns"
	"github.com/tesselai/contextgate/internal/relevance"
	"github.com/tesselai/contextgate/internal/resilience"
	"github.com/tesselai/contextgate/internal/tokens"
)

// Component names used for circuit breakers and health reporting.
const (
	componentPatterns   = "patterns"
	componentClassifier = "classifier"
	componentSurface    = "surface_analyzer"
	componentDeep       = "deep_analyzer"
	componentContextual = "contextual_analyzer"
	componentComplexity = "complexity_analyzer"
	componentRetrieval  = "retrieval"
	componentEngine     = "engine"
)

const (
	defaultPoolSize     = 3
	defaultStageTimeout = 5 * time.Second
)

// Options configures the engine. Zero values select defaults.
type Options struct {
	// PoolSize bounds how many analyzers run at once.
	PoolSize int `yaml:"pool-size" json:"pool_size"`
	// StageTimeout bounds the analyzer fan-out and retrieval stages.
	StageTimeout time.Duration `yaml:"stage-timeout" json:"stage_timeout"`

	// Patterns seeds the matcher; nil selects the built-in pack.
	Patterns []patterns.Definition `yaml:"patterns" json:"patterns"`
	// PatternFile, when set, is loaded into the matcher and hot-reloaded
	// on change.
	PatternFile string `yaml:"pattern-file" json:"pattern_file"`

	ClassifierWeights classifier.Weights `yaml:"classifier-weights" json:"classifier_weights"`
	Cache             cache.Config       `yaml:"cache" json:"cache"`
	Resilience        resilience.Config  `yaml:"resilience" json:"resilience"`
	Retrieval         relevance.Options  `yaml:"retrieval" json:"retrieval"`
	TokenMethod       tokens.Method      `yaml:"token-method" json:"token_method"`

	Metrics *metrics.Metrics `yaml:"-" json:"-"`
	Logger  *logrus.Logger   `yaml:"-" json:"-"`
}

// Engine is the orchestrator. Construct with New; Analyze is safe for
// concurrent use.
type Engine struct {
	opts    Options
	logger  *logrus.Logger
	metrics *metrics.Metrics

	matcher *patterns.Matcher
	watcher *patterns.Watcher
	caches  *cache.Manager
	handler *resilience.Handler

	// Lazily constructed stages.
	classifierOnce sync.Once
	classifier     *classifier.Classifier

	analyzersOnce sync.Once
	surface       *analyzers.SurfaceAnalyzer
	deep          *analyzers.DeepAnalyzer
	contextual    *analyzers.ContextualAnalyzer
	complexity    *analyzers.ComplexityAnalyzer

	retrieverOnce sync.Once
	retriever     *relevance.Retriever

	scorerOnce sync.Once
	scorer     *confidence.Scorer

	estimatorOnce sync.Once
	estimator     *tokens.Estimator

	queriesTotal int64
	closeOnce    sync.Once
}

// New builds an engine. Pattern definitions are compiled eagerly so
// configuration mistakes surface at startup; the remaining stages are
// constructed on first use.
func New(opts Options) (*Engine, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultPoolSize
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = defaultStageTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	defs := opts.Patterns
	if defs == nil {
		defs = patterns.DefaultDefinitions()
	}
	matcher, err := patterns.NewMatcher(defs)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		matcher: matcher,
		caches:  cache.NewManager(opts.Cache),
	}
	e.handler = resilience.NewHandler(opts.Resilience, matcher, e.caches, opts.Logger)

	if opts.PatternFile != "" {
		w, err := patterns.NewWatcher(matcher, opts.PatternFile)
		if err != nil {
			return nil, err
		}
		e.watcher = w
	}

	e.caches.Start()
	e.caches.WarmUp(nil)
	return e, nil
}

// Close releases the cache sweeper and the registry watcher.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.watcher != nil {
			e.watcher.Close()
		}
		e.caches.Stop()
	})
}

func (e *Engine) getClassifier() *classifier.Classifier {
	e.classifierOnce.Do(func() {
		e.classifier = classifier.New(e.opts.ClassifierWeights)
	})
	return e.classifier
}

func (e *Engine) getAnalyzers() (*analyzers.SurfaceAnalyzer, *analyzers.DeepAnalyzer, *analyzers.ContextualAnalyzer, *analyzers.ComplexityAnalyzer) {
	e.analyzersOnce.Do(func() {
		e.surface = analyzers.NewSurfaceAnalyzer()
		e.deep = analyzers.NewDeepAnalyzer()
		e.contextual = analyzers.NewContextualAnalyzer()
		e.complexity = analyzers.NewComplexityAnalyzer()
	})
	return e.surface, e.deep, e.contextual, e.complexity
}

func (e *Engine) getRetriever() *relevance.Retriever {
	e.retrieverOnce.Do(func() {
		e.retriever = relevance.NewRetriever(nil, e.getEstimator())
	})
	return e.retriever
}

func (e *Engine) getScorer() *confidence.Scorer {
	e.scorerOnce.Do(func() {
		e.scorer = confidence.NewScorer()
	})
	return e.scorer
}

func (e *Engine) getEstimator() *tokens.Estimator {
	e.estimatorOnce.Do(func() {
		e.estimator = tokens.NewEstimator(e.opts.TokenMethod)
	})
	return e.estimator
}

// Analyze runs the full pipeline. It never returns an error: every
// component failure degrades through the fallback hierarchy, and the
// worst case is an emergency result with confidence 0.1.
func (e *Engine) Analyze(ctx context.Context, query string, history *chat.Context) (result *AnalysisResult) {
	start := time.Now()
	atomic.AddInt64(&e.queriesTotal, 1)

	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("analysis pipeline panicked")
			result = e.degraded(componentEngine, query, PerformanceMetrics{TotalProcessingTime: time.Since(start)})
		}
	}()

	if strings.TrimSpace(query) == "" {
		fb := e.handler.Emergency(componentEngine)
		return e.fromFallback(fb, PerformanceMetrics{TotalProcessingTime: time.Since(start)})
	}

	key := resultKey(query, history)
	if v, ok := e.caches.Get(cache.LayerResult, key); ok {
		if cached, ok := v.(*AnalysisResult); ok {
			e.recordCache(cache.LayerResult, true)
			hit := *cached
			hit.Performance.CacheHit = true
			hit.Performance.TotalProcessingTime = time.Since(start)
			return &hit
		}
	}
	e.recordCache(cache.LayerResult, false)

	perf := PerformanceMetrics{}

	// Stage 1: pattern fast path.
	patternStart := time.Now()
	var match patterns.MatchResult
	err := e.handler.Guard(ctx, componentPatterns, func(context.Context) error {
		match = e.matcher.MatchWithEnv(query, patterns.Env{
			HistoryLen: history.Len(),
			Hour:       time.Now().Hour(),
		})
		return nil
	})
	perf.PatternMatchingTime = time.Since(patternStart)
	if err == nil && match.Matched {
		perf.TotalProcessingTime = time.Since(start)
		return e.finish(key, e.fromPattern(&match, perf))
	}

	// Stage 2: classification.
	var cls classifier.Classification
	err = e.handler.Guard(ctx, componentClassifier, func(context.Context) error {
		cls = e.getClassifier().Classify(query, history)
		return nil
	})
	if err != nil {
		perf.TotalProcessingTime = time.Since(start)
		return e.finish(key, e.degraded(componentClassifier, query, perf))
	}

	// Stage 3: concurrent analyzer fan-out.
	analysisStart := time.Now()
	intent := e.runAnalyzers(ctx, query, history)
	perf.AnalysisTime = time.Since(analysisStart)

	// Stage 4: conditional context retrieval.
	var ctxReq *ContextRequirements
	var retrieved *relevance.Result
	if intent.Contextual != nil && intent.Contextual.RequiresHistory && history.Len() > 0 {
		retrievalStart := time.Now()
		ctxReq, retrieved = e.retrieveContext(ctx, query, history, intent.Contextual)
		perf.ContextRetrievalTime = time.Since(retrievalStart)
	} else if intent.Contextual != nil {
		ctxReq = &ContextRequirements{
			RequiresHistory: intent.Contextual.RequiresHistory,
			HistoryDepth:    intent.Contextual.HistoryDepth,
		}
	}

	// Stage 5: final confidence.
	breakdown := e.getScorer().Score(confidence.Inputs{
		Classification: &cls,
		Intent:         intent,
		Context:        retrieved,
	})

	result = &AnalysisResult{
		Classification:      &cls,
		Intent:              intent,
		Context:             ctxReq,
		Confidence:          breakdown,
		ConfidenceScore:     breakdown.Score,
		TokenEstimate:       e.tokenBudget(&cls, intent, ctxReq),
		RecommendedStrategy: decideStrategy(&cls, ctxReq),
	}
	perf.TotalProcessingTime = time.Since(start)
	result.Performance = perf

	return e.finish(key, result)
}

// runAnalyzers fans the four analyzers out over a bounded worker pool.
// Individual analyzer failures leave their layer nil; they never abort
// the others.
func (e *Engine) runAnalyzers(ctx context.Context, query string, history *chat.Context) *analyzers.IntentAnalysis {
	surface, deep, contextual, complexity := e.getAnalyzers()

	stageCtx, cancel := context.WithTimeout(ctx, e.opts.StageTimeout)
	defer cancel()

	sem := semaphore.NewWeighted(int64(e.opts.PoolSize))
	g, gctx := errgroup.WithContext(stageCtx)

	intent := &analyzers.IntentAnalysis{}
	var mu sync.Mutex

	run := func(component string, fn func()) {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			// Guard errors are already recorded on the breaker; a failed
			// layer simply stays nil.
			_ = e.handler.Guard(gctx, component, func(context.Context) error {
				fn()
				return nil
			})
			return nil
		})
	}

	run(componentSurface, func() {
		res := surface.Analyze(query)
		mu.Lock()
		intent.Surface = res
		mu.Unlock()
	})
	run(componentDeep, func() {
		res := deep.Analyze(query)
		mu.Lock()
		intent.Deep = res
		mu.Unlock()
	})
	run(componentContextual, func() {
		res := contextual.Analyze(query, history)
		mu.Lock()
		intent.Contextual = res
		mu.Unlock()
	})
	run(componentComplexity, func() {
		res := complexity.Analyze(query)
		mu.Lock()
		intent.Complexity = res
		mu.Unlock()
	})

	_ = g.Wait()
	intent.Combine()
	return intent
}

func (e *Engine) retrieveContext(ctx context.Context, query string, history *chat.Context, contextual *analyzers.ContextualResult) (*ContextRequirements, *relevance.Result) {
	var res relevance.Result
	err := e.handler.Guard(ctx, componentRetrieval, func(context.Context) error {
		res = e.getRetriever().FindRelevantContext(query, history, e.opts.Retrieval)
		return nil
	})
	if err != nil {
		// The retriever degrades internally; reaching here means the
		// breaker is open or the stage panicked outright.
		return &ContextRequirements{
			RequiresHistory: true,
			HistoryDepth:    contextual.HistoryDepth,
			Degraded:        true,
		}, nil
	}
	return &ContextRequirements{
		RequiresHistory:  true,
		HistoryDepth:     contextual.HistoryDepth,
		SelectedMessages: res.SelectedMessages,
		EstimatedTokens:  res.EstimatedTokens,
		Degraded:         res.Degraded,
	}, &res
}

// fromPattern builds the fast-exit result for a matched pattern. The
// token estimate is exactly the pattern's canned cost.
func (e *Engine) fromPattern(match *patterns.MatchResult, perf PerformanceMetrics) *AnalysisResult {
	breakdown := e.getScorer().Score(confidence.Inputs{Pattern: match})
	return &AnalysisResult{
		PatternMatch:        match,
		Confidence:          breakdown,
		ConfidenceScore:     breakdown.Score,
		TokenEstimate:       match.EstimatedTokens,
		RecommendedStrategy: StrategyCachedResponse,
		Performance:         perf,
	}
}

// degraded serves the fallback ladder for a failed component.
func (e *Engine) degraded(component, query string, perf PerformanceMetrics) *AnalysisResult {
	fb := e.handler.Fallback(component, query)
	res := e.fromFallback(fb, perf)
	return res
}

func (e *Engine) fromFallback(fb *resilience.FallbackResult, perf PerformanceMetrics) *AnalysisResult {
	if e.metrics != nil {
		e.metrics.RecordFallback(int(fb.Level))
	}
	return &AnalysisResult{
		ConfidenceScore:     fb.Confidence,
		TokenEstimate:       fb.TokenEstimate,
		RecommendedStrategy: Strategy(fb.Strategy),
		Fallback:            fb,
		Performance:         perf,
	}
}

// finish caches the result and feeds the metrics sink. Degraded results
// are never written to the result layer: its TTL outlives an outage, and
// the handler's short-lived fallback cache already covers reuse while a
// component is down.
func (e *Engine) finish(key string, result *AnalysisResult) *AnalysisResult {
	if result.Fallback == nil {
		if err := e.caches.Set(cache.LayerResult, key, result); err != nil {
			e.logger.WithError(err).Debug("result cache write failed")
		}
	}
	if e.metrics != nil {
		baseline := tokens.Baseline(e.baselineType(result))
		e.metrics.RecordQuery(string(result.RecommendedStrategy), metrics.QueryTimings{
			PatternMatching:  result.Performance.PatternMatchingTime,
			Analysis:         result.Performance.AnalysisTime,
			ContextRetrieval: result.Performance.ContextRetrievalTime,
			Total:            result.Performance.TotalProcessingTime,
		}, result.ConfidenceScore, result.TokenEstimate, baseline)
	}
	return result
}

func (e *Engine) baselineType(result *AnalysisResult) string {
	if result.Classification != nil {
		return string(result.Classification.QueryType)
	}
	if result.PatternMatch != nil {
		return result.PatternMatch.QueryType
	}
	return ""
}

func decideStrategy(cls *classifier.Classification, ctxReq *ContextRequirements) Strategy {
	if cls.QueryType == classifier.TypeComplex {
		return StrategyComprehensive
	}
	if ctxReq != nil && (ctxReq.RequiresHistory || len(ctxReq.SelectedMessages) > 0) {
		return StrategyTechnicalContext
	}
	if cls.QueryType == classifier.TypeMedium {
		return StrategyTechnicalContext
	}
	return StrategyMinimalContext
}

// tokenBudget picks the recommended budget: the complexity tier's budget
// when available, otherwise the baseline for the query type, plus the
// cost of any retrieved context.
func (e *Engine) tokenBudget(cls *classifier.Classification, intent *analyzers.IntentAnalysis, ctxReq *ContextRequirements) int {
	budget := 0
	if intent != nil && intent.Complexity != nil {
		budget = intent.Complexity.TokenBudget
	}
	if budget <= 0 {
		budget = tokens.Baseline(string(cls.QueryType))
	}
	if ctxReq != nil {
		budget += ctxReq.EstimatedTokens
	}
	return budget
}

func (e *Engine) recordCache(layer cache.LayerName, hit bool) {
	if e.metrics != nil {
		e.metrics.RecordCache(string(layer), hit)
	}
}

// resultKey buckets identical queries against the same history shape.
func resultKey(query string, history *chat.Context) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	if history != nil {
		h.Write([]byte(history.SessionID))
		h.Write([]byte(strconv.Itoa(history.Len())))
	}
	return "result:" + hex.EncodeToString(h.Sum(nil)[:16])
}

// SystemHealth reports per-component breaker health and refreshes the
// open-breaker gauges.
func (e *Engine) SystemHealth() []resilience.ComponentHealth {
	components := e.handler.Health()
	if e.metrics != nil {
		for _, c := range components {
			e.metrics.SetBreakerOpen(c.ComponentName, c.Status == "error")
		}
	}
	return components
}

// RecordOutcome feeds correctness feedback into the confidence scorer.
func (e *Engine) RecordOutcome(component string, wasCorrect bool) {
	e.getScorer().RecordOutcome(component, wasCorrect)
}

// RecordPatternFeedback adjusts a pattern's effectiveness score.
func (e *Engine) RecordPatternFeedback(patternID string, wasHelpful bool) {
	e.matcher.RecordFeedback(patternID, wasHelpful)
}

// Matcher exposes the pattern matcher for registration and import/export.
func (e *Engine) Matcher() *patterns.Matcher { return e.matcher }

// Stats aggregates the observable state of every subsystem.
func (e *Engine) Stats() map[string]interface{} {
	cacheMetrics := make(map[string]interface{})
	for layer, m := range e.caches.Metrics() {
		cacheMetrics[string(layer)] = m
	}
	return map[string]interface{}{
		"queries_total":    atomic.LoadInt64(&e.queriesTotal),
		"pattern_stats":    e.matcher.Stats(),
		"pattern_savings":  e.matcher.Savings(),
		"cache":            cacheMetrics,
		"confidence":       e.getScorer().GetMetrics(),
		"resilience":       e.handler.GetMetrics(),
		"component_health": e.SystemHealth(),
	}
}
