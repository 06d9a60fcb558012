// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tesselai/contextgate/internal/chat"
)

func historyOf(n int) *chat.Context {
	ctx := chat.NewContext()
	for i := 0; i < n; i++ {
		ctx.Append(chat.NewMessage(chat.RoleUser, "previous message"))
	}
	return ctx
}

func TestClassify_Social(t *testing.T) {
	c := New(DefaultWeights())

	res := c.Classify("hello", nil)
	require.Equal(t, IntentSocial, res.PrimaryIntent)
	require.Equal(t, TypeSimple, res.QueryType)
	require.Equal(t, ComplexityMinimal, res.Complexity)
	require.Greater(t, res.Confidence, 0.5)
}

func TestClassify_TechnicalError(t *testing.T) {
	c := New(DefaultWeights())

	res := c.Classify("debug this undefined error in my React component", historyOf(3))
	require.Contains(t, []Intent{IntentTechnical, IntentError}, res.PrimaryIntent)
	require.Equal(t, TypeComplex, res.QueryType)
	require.NotEmpty(t, res.Indicators)
	require.Greater(t, res.Scores.Technical, 0.35)
	require.Greater(t, res.Scores.Error, 0.0)
}

func TestClassify_ErrorPriority(t *testing.T) {
	c := New(DefaultWeights())

	// Exception name plus failure vocabulary crosses the error cutoff, and
	// error outranks technical in the priority order.
	res := c.Classify("TypeError: cannot read property, my app crashed", nil)
	require.Equal(t, IntentError, res.PrimaryIntent)
	require.Greater(t, res.Scores.Error, 0.4)
}

func TestClassify_StackTrace(t *testing.T) {
	c := New(DefaultWeights())

	res := c.Classify("what does this mean: Traceback (most recent call last)", nil)
	require.Equal(t, IntentError, res.PrimaryIntent)
}

func TestClassify_Complex(t *testing.T) {
	c := New(DefaultWeights())

	res := c.Classify("how should I restructure the event-driven architecture across multiple files for scalability", nil)
	require.Contains(t, []Intent{IntentComplex, IntentTechnical}, res.PrimaryIntent)
	require.Equal(t, TypeComplex, res.QueryType)
	require.Greater(t, res.Scores.Complexity, 0.4)
}

func TestClassify_Continuation(t *testing.T) {
	c := New(DefaultWeights())

	res := c.Classify("what about that one", historyOf(2))
	require.Equal(t, IntentContinuation, res.PrimaryIntent)
	require.Greater(t, res.Scores.ContextDependency, 0.45)

	// Without history the dependency score loses the boost.
	bare := c.Classify("what about that one", nil)
	require.Less(t, bare.Scores.ContextDependency, res.Scores.ContextDependency)
}

func TestClassify_Creation(t *testing.T) {
	c := New(DefaultWeights())

	res := c.Classify("make me something fun", nil)
	require.Equal(t, IntentCreation, res.PrimaryIntent)
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(DefaultWeights())
	q := "fix the database query in the api endpoint"

	first := c.Classify(q, historyOf(1))
	second := c.Classify(q, historyOf(1))
	require.Equal(t, first, second)
}

func TestClassify_ConfidenceBounds(t *testing.T) {
	c := New(DefaultWeights())

	queries := []string{
		"", "hello", "debug this", "ServerError 500 at main.go:10 panic",
		"please refactor the entire codebase architecture and fix every error",
	}
	for _, q := range queries {
		res := c.Classify(q, nil)
		require.GreaterOrEqual(t, res.Confidence, 0.0, q)
		require.LessOrEqual(t, res.Confidence, 1.0, q)
	}
}

func TestUpdateWeights(t *testing.T) {
	c := New(DefaultWeights())

	// Muting the error scorer demotes error intent.
	w := DefaultWeights()
	w.Error = 0
	c.UpdateWeights(w)

	res := c.Classify("TypeError: cannot read property, my app crashed", nil)
	require.NotEqual(t, IntentError, res.PrimaryIntent)
	require.Zero(t, res.Scores.Error)
}

func TestScoreTechnical_Proximity(t *testing.T) {
	score1, _ := scoreTechnical("debug the function", []string{"debug", "the", "function"})
	score2, _ := scoreTechnical("debug something unrelated here then function", []string{"debug", "something", "unrelated", "here", "then", "function"})
	require.Greater(t, score1, score2, "adjacent verb-noun pair should earn the proximity bonus")
}

func TestDeriveComplexity_Thresholds(t *testing.T) {
	tests := []struct {
		scores    Scores
		wantTier  Complexity
		wantQuery QueryType
	}{
		{Scores{}, ComplexityMinimal, TypeSimple},
		{Scores{Technical: 0.3}, ComplexityBasic, TypeSimple},
		{Scores{Technical: 0.6}, ComplexityModerate, TypeMedium},
		{Scores{Technical: 0.6, Error: 0.4}, ComplexityAdvanced, TypeComplex},
		{Scores{Technical: 0.9, Complexity: 0.5, Error: 0.5}, ComplexityExpert, TypeComplex},
	}
	for _, tt := range tests {
		tier, qt := deriveComplexity(tt.scores)
		require.Equal(t, tt.wantTier, tier)
		require.Equal(t, tt.wantQuery, qt)
	}
}
