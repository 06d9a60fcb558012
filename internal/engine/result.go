// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"time"

	"github.com/tesselai/contextgate/internal/analyzers"
	"github.com/tesselai/contextgate/internal/classifier"
	"github.com/tesselai/contextgate/internal/confidence"
	"github.com/tesselai/contextgate/internal/patterns"
	"github.com/tesselai/contextgate/internal/relevance"
	"github.com/tesselai/contextgate/internal/resilience"
)

// Strategy is the processing recommendation attached to every result.
type Strategy string

const (
	// StrategyCachedResponse serves the pattern's canned reply directly.
	StrategyCachedResponse Strategy = "cached_response"
	// StrategyMinimalContext answers without conversation history.
	StrategyMinimalContext Strategy = "minimal_context"
	// StrategyTechnicalContext answers with selected technical history.
	StrategyTechnicalContext Strategy = "technical_context"
	// StrategyComprehensive sends full history and a large budget.
	StrategyComprehensive Strategy = "comprehensive_analysis"
	// StrategyEmergency is the degraded last-resort recommendation.
	StrategyEmergency Strategy = "emergency_fallback"
)

// ContextRequirements describes how much conversation history the query
// needs and what was retrieved for it.
type ContextRequirements struct {
	RequiresHistory  bool                        `json:"requires_history"`
	HistoryDepth     int                         `json:"history_depth"`
	SelectedMessages []relevance.RelevantMessage `json:"selected_messages,omitempty"`
	EstimatedTokens  int                         `json:"estimated_tokens"`
	Degraded         bool                        `json:"degraded"`
}

// PerformanceMetrics carries the stage timings of one analysis call.
type PerformanceMetrics struct {
	PatternMatchingTime  time.Duration `json:"pattern_matching_time"`
	AnalysisTime         time.Duration `json:"analysis_time"`
	ContextRetrievalTime time.Duration `json:"context_retrieval_time"`
	TotalProcessingTime  time.Duration `json:"total_processing_time"`
	CacheHit             bool          `json:"cache_hit"`
}

// AnalysisResult is the single output contract of Analyze. Immutable once
// returned; one per query.
type AnalysisResult struct {
	Classification *classifier.Classification `json:"classification,omitempty"`
	Intent         *analyzers.IntentAnalysis  `json:"intent,omitempty"`
	Context        *ContextRequirements       `json:"context,omitempty"`
	PatternMatch   *patterns.MatchResult      `json:"pattern_match,omitempty"`

	Confidence      *confidence.Breakdown `json:"confidence,omitempty"`
	ConfidenceScore float64               `json:"confidence_score"`
	TokenEstimate   int                   `json:"token_estimate"`

	RecommendedStrategy Strategy `json:"recommended_strategy"`

	// Fallback is set when the result was produced by the degraded path.
	Fallback *resilience.FallbackResult `json:"fallback,omitempty"`

	Performance PerformanceMetrics `json:"performance"`
}
