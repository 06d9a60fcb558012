// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package confidence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tesselai/contextgate/internal/analyzers"
	"github.com/tesselai/contextgate/internal/classifier"
	"github.com/tesselai/contextgate/internal/patterns"
	"github.com/tesselai/contextgate/internal/relevance"
)

func strongInputs() Inputs {
	return Inputs{
		Classification: &classifier.Classification{
			PrimaryIntent: classifier.IntentTechnical,
			Confidence:    0.85,
			Indicators:    []classifier.Indicator{{Type: "technical", Signal: "fix"}},
		},
		Intent: &analyzers.IntentAnalysis{
			Deep:              &analyzers.DeepResult{Base: analyzers.Base{Confidence: 0.85}},
			Complexity:        &analyzers.ComplexityResult{Base: analyzers.Base{Confidence: 0.8}},
			OverallConfidence: 0.82,
		},
	}
}

func TestScore_WeightsExact(t *testing.T) {
	s := NewScorer()
	b := s.Score(strongInputs())

	want := 0.25*b.SignalStrength +
		0.20*b.Consistency +
		0.20*b.HistoricalAccuracy +
		0.15*b.PatternReliability +
		0.15*b.ContextualSupport -
		0.05*b.UncertaintyPenalty
	require.InDelta(t, want, b.Score, 1e-9, "the fixed weight blend must be reproduced exactly")
	require.GreaterOrEqual(t, b.Score, 0.0)
	require.LessOrEqual(t, b.Score, 1.0)
}

func TestScore_SeededHistoricalAccuracy(t *testing.T) {
	s := NewScorer()
	b := s.Score(strongInputs())
	require.InDelta(t, 0.8, b.HistoricalAccuracy, 1e-9, "unseen components are seeded at 0.8")
}

func TestRecordOutcome(t *testing.T) {
	s := NewScorer()
	require.InDelta(t, 0.8, s.Accuracy(ComponentClassifier), 1e-9)

	s.RecordOutcome(ComponentClassifier, true)
	s.RecordOutcome(ComponentClassifier, true)
	s.RecordOutcome(ComponentClassifier, false)
	s.RecordOutcome(ComponentClassifier, true)
	require.InDelta(t, 0.75, s.Accuracy(ComponentClassifier), 1e-9)

	// Other components stay seeded.
	require.InDelta(t, 0.8, s.Accuracy(ComponentAnalyzers), 1e-9)

	// A poorly performing component drags the blended accuracy down.
	before := s.Score(strongInputs()).Score
	for i := 0; i < 20; i++ {
		s.RecordOutcome(ComponentClassifier, false)
	}
	after := s.Score(strongInputs()).Score
	require.Less(t, after, before)
}

func TestScore_PatternReliability(t *testing.T) {
	s := NewScorer()

	in := strongInputs()
	base := s.Score(in)
	require.InDelta(t, 0.5, base.PatternReliability, 1e-9, "no pattern means neutral reliability")

	in.Pattern = &patterns.MatchResult{Matched: true, Confidence: 0.9}
	withPattern := s.Score(in)
	require.InDelta(t, 0.9, withPattern.PatternReliability, 1e-9)
	require.Greater(t, withPattern.Score, base.Score)
}

func TestScore_ConsistencyAgreement(t *testing.T) {
	s := NewScorer()

	agree := s.Score(strongInputs())

	disagree := strongInputs()
	disagree.Classification.PrimaryIntent = classifier.IntentSocial // surface layer absent
	require.Greater(t, agree.Consistency, s.Score(disagree).Consistency)
}

func TestScore_VariancePenalty(t *testing.T) {
	s := NewScorer()

	steady := strongInputs()
	spread := strongInputs()
	spread.Intent.Deep.Confidence = 0.95
	spread.Intent.Complexity.Confidence = 0.1

	require.Greater(t, s.Score(steady).Consistency, s.Score(spread).Consistency)
}

func TestScore_ContextualSupport(t *testing.T) {
	s := NewScorer()

	in := strongInputs()
	in.Context = &relevance.Result{
		SelectedMessages: []relevance.RelevantMessage{{Content: "prior fix", RelevanceScore: 0.8}},
		QualityScore:     0.8,
	}
	require.InDelta(t, 0.8, s.Score(in).ContextualSupport, 1e-9)

	in.Context = &relevance.Result{Degraded: true}
	degraded := s.Score(in)
	require.InDelta(t, 0.3, degraded.ContextualSupport, 1e-9)
	require.Contains(t, degraded.Recommendations, "context retrieval degraded; consider retrying with full history")
}

func TestScore_MissingContextWhenRequired(t *testing.T) {
	s := NewScorer()

	in := strongInputs()
	in.Intent.Contextual = &analyzers.ContextualResult{
		Base:            analyzers.Base{Confidence: 0.7},
		RequiresHistory: true,
	}
	b := s.Score(in)
	require.InDelta(t, 0.3, b.ContextualSupport, 1e-9)
	require.Contains(t, b.Recommendations, "retrieve conversation history before answering")
}

func TestScore_RiskLevels(t *testing.T) {
	s := NewScorer()

	low := s.Score(strongInputs())
	require.Equal(t, RiskLow, low.Risk)

	weak := Inputs{
		Classification: &classifier.Classification{
			PrimaryIntent: classifier.IntentSocial,
			Confidence:    0.05,
		},
		Intent: &analyzers.IntentAnalysis{
			Surface:           &analyzers.SurfaceResult{Base: analyzers.Base{Confidence: 0.0}},
			Deep:              &analyzers.DeepResult{Base: analyzers.Base{Confidence: 0.6}},
			OverallConfidence: 0.05,
		},
		Context: &relevance.Result{Degraded: true},
	}
	b := s.Score(weak)
	require.Equal(t, RiskHigh, b.Risk)
	require.Contains(t, b.Recommendations, "treat the query as full-context and skip optimizations")
}

func TestGetMetrics(t *testing.T) {
	s := NewScorer()
	s.Score(strongInputs())
	s.Score(strongInputs())
	s.RecordOutcome(ComponentPatterns, true)

	m := s.GetMetrics()
	require.Equal(t, 2, m["total_scores"])
	avg, ok := m["average_score"].(float64)
	require.True(t, ok)
	require.Greater(t, avg, 0.0)

	acc, ok := m["component_accuracy"].(map[string]float64)
	require.True(t, ok)
	require.InDelta(t, 1.0, acc[ComponentPatterns], 1e-9)
}

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer()
	a := s.Score(strongInputs())
	b := s.Score(strongInputs())
	require.Equal(t, a.Score, b.Score)
	require.Equal(t, a.Risk, b.Risk)
}
