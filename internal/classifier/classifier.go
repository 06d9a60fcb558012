// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package classifier scores technical, social, complexity, error and
// context-dependency signals in a query and combines them into a single
// classification. Classification is deterministic: same input, same output.
package classifier

import (
	"strings"
	"sync"

	"github.com/tesselai/contextgate/internal/chat"
)

// QueryType is the coarse processing tier.
type QueryType string

const (
	TypeSimple  QueryType = "SIMPLE"
	TypeMedium  QueryType = "MEDIUM"
	TypeComplex QueryType = "COMPLEX"
)

// Complexity is the fine-grained effort tier.
type Complexity string

const (
	ComplexityMinimal  Complexity = "minimal"
	ComplexityBasic    Complexity = "basic"
	ComplexityModerate Complexity = "moderate"
	ComplexityAdvanced Complexity = "advanced"
	ComplexityExpert   Complexity = "expert"
)

// Intent is the primary intent of a query.
type Intent string

const (
	IntentSocial       Intent = "social"
	IntentTechnical    Intent = "technical"
	IntentContinuation Intent = "continuation"
	IntentComplex      Intent = "complex"
	IntentError        Intent = "error"
	IntentCreation     Intent = "creation"
)

// Indicator is one weighted piece of classification evidence.
type Indicator struct {
	Type       string  `json:"type"`
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// Classification is the immutable output of Classify.
type Classification struct {
	QueryType     QueryType   `json:"query_type"`
	Complexity    Complexity  `json:"complexity"`
	PrimaryIntent Intent      `json:"primary_intent"`
	Confidence    float64     `json:"confidence"`
	Indicators    []Indicator `json:"indicators"`

	// Raw per-scorer values, exposed for the confidence scorer.
	Scores Scores `json:"scores"`
}

// Scores holds the raw output of the five independent scorers.
type Scores struct {
	Technical         float64 `json:"technical"`
	Social            float64 `json:"social"`
	Complexity        float64 `json:"complexity"`
	Error             float64 `json:"error"`
	ContextDependency float64 `json:"context_dependency"`
}

// Weights scales each scorer's contribution. Configurable via
// UpdateWeights; never auto-tuned online.
type Weights struct {
	Technical         float64 `yaml:"technical" json:"technical"`
	Social            float64 `yaml:"social" json:"social"`
	Complexity        float64 `yaml:"complexity" json:"complexity"`
	Error             float64 `yaml:"error" json:"error"`
	ContextDependency float64 `yaml:"context-dependency" json:"context_dependency"`
}

// DefaultWeights returns the neutral weighting.
func DefaultWeights() Weights {
	return Weights{Technical: 1, Social: 1, Complexity: 1, Error: 1, ContextDependency: 1}
}

// Intent decision cutoffs, applied in priority order
// error > technical > complex > continuation > social.
const (
	errorCutoff        = 0.40
	technicalCutoff    = 0.35
	complexCutoff      = 0.40
	continuationCutoff = 0.45
	socialCutoff       = 0.50
)

// Classifier scores queries. Safe for concurrent use; the only mutable
// state is the weight set.
type Classifier struct {
	mu      sync.RWMutex
	weights Weights
}

// New creates a classifier with the given weights; zero weights fall back
// to the defaults.
func New(w Weights) *Classifier {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Classifier{weights: w}
}

// UpdateWeights replaces the scorer weights.
func (c *Classifier) UpdateWeights(w Weights) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights = w
}

// Weights returns the current weight set.
func (c *Classifier) Weights() Weights {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights
}

// Classify scores the query against all five signal families and derives
// the primary intent, complexity tier and query type.
func (c *Classifier) Classify(query string, history *chat.Context) Classification {
	c.mu.RLock()
	w := c.weights
	c.mu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(normalized)

	var indicators []Indicator

	technical, techInd := scoreTechnical(normalized, words)
	social, socialInd := scoreSocial(normalized)
	complexity, complexInd := scoreComplexity(normalized)
	errScore, errInd := scoreError(query, normalized)
	contextDep, ctxInd := scoreContextDependency(normalized, words, history.Len() > 0)

	indicators = append(indicators, techInd...)
	indicators = append(indicators, socialInd...)
	indicators = append(indicators, complexInd...)
	indicators = append(indicators, errInd...)
	indicators = append(indicators, ctxInd...)

	scores := Scores{
		Technical:         clamp01(technical * w.Technical),
		Social:            clamp01(social * w.Social),
		Complexity:        clamp01(complexity * w.Complexity),
		Error:             clamp01(errScore * w.Error),
		ContextDependency: clamp01(contextDep * w.ContextDependency),
	}

	intent := decideIntent(scores, words)
	tier, queryType := deriveComplexity(scores)

	confidence := scores.Technical*0.25 + scores.Social*0.15 + scores.Complexity*0.2 +
		scores.Error*0.25 + scores.ContextDependency*0.15
	// Strong single signals should not read as low confidence just because
	// the other families are quiet.
	if top := maxScore(scores); top > confidence {
		confidence = top
	}

	return Classification{
		QueryType:     queryType,
		Complexity:    tier,
		PrimaryIntent: intent,
		Confidence:    clamp01(confidence),
		Indicators:    indicators,
		Scores:        scores,
	}
}

// decideIntent applies the documented cutoffs in priority order, with
// creation-verb detection as the tiebreaker before the final fallback.
func decideIntent(s Scores, words []string) Intent {
	switch {
	case s.Error > errorCutoff:
		return IntentError
	case s.Technical > technicalCutoff:
		return IntentTechnical
	case s.Complexity > complexCutoff:
		return IntentComplex
	case s.ContextDependency > continuationCutoff:
		return IntentContinuation
	case s.Social > socialCutoff:
		return IntentSocial
	}
	for _, word := range words {
		if creationVerbs[word] {
			return IntentCreation
		}
	}
	if s.Social >= s.Technical {
		return IntentSocial
	}
	return IntentTechnical
}

// deriveComplexity maps the escalation-weighted score to a tier. Error and
// complexity signals escalate harder than raw technical density.
func deriveComplexity(s Scores) (Complexity, QueryType) {
	score := s.Technical + 1.5*s.Complexity + 1.2*s.Error
	switch {
	case score < 0.2:
		return ComplexityMinimal, TypeSimple
	case score < 0.5:
		return ComplexityBasic, TypeSimple
	case score < 0.9:
		return ComplexityModerate, TypeMedium
	case score < 1.4:
		return ComplexityAdvanced, TypeComplex
	default:
		return ComplexityExpert, TypeComplex
	}
}

func maxScore(s Scores) float64 {
	m := s.Technical
	for _, v := range []float64{s.Social, s.Complexity, s.Error, s.ContextDependency} {
		if v > m {
			m = v
		}
	}
	return m
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
