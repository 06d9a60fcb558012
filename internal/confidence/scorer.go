// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package confidence blends the classifier, analyzer and context-retrieval
// signals into one overall confidence score with a risk assessment.
package confidence

import (
	"math"
	"sync"

	"github.com/tesselai/contextgate/internal/analyzers"
	"github.com/tesselai/contextgate/internal/classifier"
	"github.com/tesselai/contextgate/internal/patterns"
	"github.com/tesselai/contextgate/internal/relevance"
)

// Fixed factor weights. The uncertainty weight is subtracted.
const (
	weightSignalStrength = 0.25
	weightConsistency    = 0.20
	weightHistorical     = 0.20
	weightPattern        = 0.15
	weightContext        = 0.15
	weightUncertainty    = 0.05
)

// seedAccuracy is the accuracy assumed for a component with no recorded
// outcomes yet.
const seedAccuracy = 0.8

// Component names tracked by the historical-accuracy ratio.
const (
	ComponentClassifier = "classifier"
	ComponentAnalyzers  = "analyzers"
	ComponentPatterns   = "patterns"
	ComponentRetrieval  = "retrieval"
)

// RiskLevel grades how much the caller should trust the analysis.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Inputs carries everything the earlier pipeline stages produced. Context
// and Pattern are optional; nil means the stage did not run.
type Inputs struct {
	Classification *classifier.Classification
	Intent         *analyzers.IntentAnalysis
	Context        *relevance.Result
	Pattern        *patterns.MatchResult
}

// Breakdown is the detailed scoring result.
type Breakdown struct {
	SignalStrength     float64 `json:"signal_strength"`
	Consistency        float64 `json:"consistency"`
	HistoricalAccuracy float64 `json:"historical_accuracy"`
	PatternReliability float64 `json:"pattern_reliability"`
	ContextualSupport  float64 `json:"contextual_support"`
	UncertaintyPenalty float64 `json:"uncertainty_penalty"`

	Score           float64   `json:"score"`
	Risk            RiskLevel `json:"risk"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

type accuracyRecord struct {
	correct int
	total   int
}

// Scorer combines the six factors and tracks per-component historical
// accuracy plus distribution metrics.
type Scorer struct {
	mu       sync.RWMutex
	accuracy map[string]*accuracyRecord

	// Metrics
	totalScores    int
	scoreSum       float64
	lowScoreCount  int // < 0.40
	highScoreCount int // > 0.70
}

// NewScorer creates a Scorer with empty accuracy history.
func NewScorer() *Scorer {
	return &Scorer{accuracy: make(map[string]*accuracyRecord)}
}

// Score blends the six factors into the final confidence. The returned
// Breakdown always has Score in [0,1].
func (s *Scorer) Score(in Inputs) *Breakdown {
	b := &Breakdown{
		SignalStrength:     signalStrength(in),
		Consistency:        consistency(in),
		HistoricalAccuracy: s.historicalAccuracy(in),
		PatternReliability: patternReliability(in),
		ContextualSupport:  contextualSupport(in),
		UncertaintyPenalty: uncertaintyPenalty(in),
	}

	score := weightSignalStrength*b.SignalStrength +
		weightConsistency*b.Consistency +
		weightHistorical*b.HistoricalAccuracy +
		weightPattern*b.PatternReliability +
		weightContext*b.ContextualSupport -
		weightUncertainty*b.UncertaintyPenalty
	b.Score = clamp01(score)
	b.Risk = riskFor(b.Score)
	b.Recommendations = recommend(b, in)

	s.mu.Lock()
	s.totalScores++
	s.scoreSum += b.Score
	if b.Score < 0.40 {
		s.lowScoreCount++
	} else if b.Score > 0.70 {
		s.highScoreCount++
	}
	s.mu.Unlock()

	return b
}

// RecordOutcome feeds a correctness signal back into the historical
// accuracy ratio of the named component.
func (s *Scorer) RecordOutcome(component string, wasCorrect bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.accuracy[component]
	if rec == nil {
		rec = &accuracyRecord{}
		s.accuracy[component] = rec
	}
	rec.total++
	if wasCorrect {
		rec.correct++
	}
}

// Accuracy returns the running accuracy ratio for a component, seeded at
// 0.8 until outcomes have been recorded.
func (s *Scorer) Accuracy(component string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accuracyLocked(component)
}

func (s *Scorer) accuracyLocked(component string) float64 {
	rec := s.accuracy[component]
	if rec == nil || rec.total == 0 {
		return seedAccuracy
	}
	return float64(rec.correct) / float64(rec.total)
}

// GetMetrics returns the confidence distribution metrics.
func (s *Scorer) GetMetrics() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	avg := 0.0
	if s.totalScores > 0 {
		avg = s.scoreSum / float64(s.totalScores)
	}
	accuracies := make(map[string]float64, len(s.accuracy))
	for name := range s.accuracy {
		accuracies[name] = s.accuracyLocked(name)
	}

	return map[string]interface{}{
		"total_scores":       s.totalScores,
		"average_score":      avg,
		"low_score_count":    s.lowScoreCount,
		"high_score_count":   s.highScoreCount,
		"component_accuracy": accuracies,
	}
}

// --- factor computation ---

// signalStrength is the mean of the classifier and analyzer confidences,
// but never below the strongest of the two: one loud signal should not be
// drowned out by a quiet stage.
func signalStrength(in Inputs) float64 {
	var vals []float64
	if in.Classification != nil {
		vals = append(vals, in.Classification.Confidence)
	}
	if in.Intent != nil {
		vals = append(vals, in.Intent.OverallConfidence)
	}
	if in.Pattern != nil && in.Pattern.Matched {
		vals = append(vals, in.Pattern.Confidence)
	}
	if len(vals) == 0 {
		return 0
	}
	sum, max := 0.0, 0.0
	for _, v := range vals {
		sum += v
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(vals))
	if max > mean {
		return clamp01((mean + max) / 2)
	}
	return clamp01(mean)
}

// consistency rewards intent-type agreement between the classifier and the
// analyzer layers and penalizes spread between the layer confidences.
func consistency(in Inputs) float64 {
	if in.Classification == nil || in.Intent == nil {
		return 0.5
	}
	score := 0.5
	if layersAgree(in.Classification.PrimaryIntent, in.Intent) {
		score += 0.4
	}
	score -= math.Min(confidenceVariance(in.Intent)*2, 0.4)
	return clamp01(score)
}

// layersAgree checks that the analyzer layer matching the classified
// intent actually fired with a meaningful confidence.
func layersAgree(intent classifier.Intent, a *analyzers.IntentAnalysis) bool {
	switch intent {
	case classifier.IntentSocial:
		return a.Surface != nil && a.Surface.Confidence >= 0.5
	case classifier.IntentTechnical, classifier.IntentCreation, classifier.IntentError:
		return a.Deep != nil && a.Deep.Confidence >= 0.5
	case classifier.IntentContinuation:
		return a.Contextual != nil && a.Contextual.Confidence >= 0.5
	case classifier.IntentComplex:
		return a.Complexity != nil && a.Complexity.Confidence >= 0.5
	}
	return false
}

func confidenceVariance(a *analyzers.IntentAnalysis) float64 {
	vals := a.LayerConfidences()
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	return variance / float64(len(vals))
}

func (s *Scorer) historicalAccuracy(in Inputs) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, n := 0.0, 0
	if in.Classification != nil {
		sum += s.accuracyLocked(ComponentClassifier)
		n++
	}
	if in.Intent != nil {
		sum += s.accuracyLocked(ComponentAnalyzers)
		n++
	}
	if in.Pattern != nil && in.Pattern.Matched {
		sum += s.accuracyLocked(ComponentPatterns)
		n++
	}
	if in.Context != nil {
		sum += s.accuracyLocked(ComponentRetrieval)
		n++
	}
	if n == 0 {
		return seedAccuracy
	}
	return sum / float64(n)
}

func patternReliability(in Inputs) float64 {
	if in.Pattern == nil || !in.Pattern.Matched {
		// Neutral: no pattern was involved, so none can be unreliable.
		return 0.5
	}
	return clamp01(in.Pattern.Confidence)
}

func contextualSupport(in Inputs) float64 {
	if in.Context != nil {
		if in.Context.Degraded {
			return 0.3
		}
		if len(in.Context.SelectedMessages) == 0 {
			return 0.4
		}
		return clamp01(in.Context.QualityScore)
	}
	// No retrieval ran. A query that does not depend on history is fully
	// supported without it; one that does is missing its context.
	if in.Intent != nil && in.Intent.Contextual != nil && in.Intent.Contextual.RequiresHistory {
		return 0.3
	}
	return 0.7
}

func uncertaintyPenalty(in Inputs) float64 {
	penalty := 0.0
	if in.Classification != nil {
		if in.Classification.Confidence < 0.4 {
			penalty += 0.3
		}
		if len(in.Classification.Indicators) == 0 {
			penalty += 0.2
		}
	}
	if in.Intent != nil && confidenceVariance(in.Intent) > 0.08 {
		penalty += 0.2
	}
	if in.Context != nil && in.Context.Degraded {
		penalty += 0.2
	}
	return math.Min(penalty, 1.0)
}

func riskFor(score float64) RiskLevel {
	switch {
	case score >= 0.7:
		return RiskLow
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func recommend(b *Breakdown, in Inputs) []string {
	var recs []string
	if b.Risk == RiskHigh {
		recs = append(recs, "treat the query as full-context and skip optimizations")
	}
	if b.SignalStrength < 0.4 {
		recs = append(recs, "ask the user to clarify their intent")
	}
	if b.Consistency < 0.4 {
		recs = append(recs, "classifier and analyzers disagree; prefer the conservative strategy")
	}
	if in.Context != nil && in.Context.Degraded {
		recs = append(recs, "context retrieval degraded; consider retrying with full history")
	}
	if in.Intent != nil && in.Intent.Contextual != nil &&
		in.Intent.Contextual.RequiresHistory && in.Context == nil {
		recs = append(recs, "retrieve conversation history before answering")
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
