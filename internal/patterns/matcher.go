// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patterns

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tesselai/contextgate/internal/tokens"
)

// Effectiveness tuning constants. These are heuristics, not load-bearing
// values; imports may override the seed per pattern.
const (
	effectivenessStep    = 0.01
	effectivenessStepCap = 0.05
	effectivenessPenalty = 0.10
	cleanupThreshold     = 0.30
	cleanupMinHits       = 10
)

// MatchResult is the outcome of a pattern lookup.
type MatchResult struct {
	// Matched reports whether any pattern accepted the query.
	Matched bool `json:"matched"`
	// PatternID and PatternType identify the winning pattern.
	PatternID   string      `json:"pattern_id,omitempty"`
	PatternType PatternType `json:"pattern_type,omitempty"`
	// QueryType is the tier the pattern implies.
	QueryType string `json:"query_type,omitempty"`
	// Confidence is the match confidence in [0,1]; 0 on no match.
	Confidence float64 `json:"confidence"`
	// EstimatedTokens is the token cost of the canned response.
	EstimatedTokens int `json:"estimated_tokens"`
	// FallbackResponse is the canned reply to emit verbatim.
	FallbackResponse string `json:"fallback_response,omitempty"`
	// IsComplete short-circuits the pipeline when true.
	IsComplete bool `json:"is_complete"`
}

// Stats is a read-only snapshot of one pattern's registry entry.
type Stats struct {
	Definition
	HitCount           int64   `json:"hit_count"`
	EffectivenessScore float64 `json:"effectiveness_score"`
}

// Matcher evaluates the ordered pattern registry. Safe for concurrent use.
type Matcher struct {
	mu       sync.RWMutex
	registry []*Pattern

	// savings accounting
	totalBaseline int64
	totalActual   int64
	totalMatches  int64
	totalMisses   int64

	logger *log.Entry
}

// NewMatcher builds a matcher from the given definitions, in order. Use
// DefaultDefinitions for the built-in registry.
func NewMatcher(defs []Definition) (*Matcher, error) {
	m := &Matcher{logger: log.WithField("component", "patterns")}
	for _, def := range defs {
		if err := m.Register(def); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register appends a pattern to the registry. Duplicate IDs replace the
// existing pattern in place, preserving registry order.
func (m *Matcher) Register(def Definition) error {
	p, err := compile(def)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.registry {
		if existing.ID == def.ID {
			m.registry[i] = p
			return nil
		}
	}
	m.registry = append(m.registry, p)
	return nil
}

// Remove deletes a pattern by ID. Returns false if it was not registered.
func (m *Matcher) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.registry {
		if p.ID == id {
			m.registry = append(m.registry[:i], m.registry[i+1:]...)
			return true
		}
	}
	return false
}

// Match tests the query against the registry with an empty environment.
func (m *Matcher) Match(query string) MatchResult {
	return m.MatchWithEnv(query, Env{})
}

// MatchWithEnv tests the normalized query against the registry in
// registration order; the first pattern whose regex matches and whose guard
// passes wins. No backtracking across patterns.
func (m *Matcher) MatchWithEnv(query string, env Env) MatchResult {
	normalized := strings.ToLower(strings.TrimSpace(query))
	env.Query = normalized
	if env.Hour == 0 {
		env.Hour = time.Now().Hour()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.registry {
		if !p.re.MatchString(normalized) {
			continue
		}
		if !p.guardPasses(env) {
			continue
		}
		p.HitCount++
		bump := float64(p.HitCount) * effectivenessStep
		if bump > effectivenessStepCap {
			bump = effectivenessStepCap
		}
		p.EffectivenessScore = clamp01(p.EffectivenessScore + bump)

		m.totalMatches++
		m.totalBaseline += int64(tokens.Baseline(p.QueryType))
		m.totalActual += int64(p.Tokens)

		return MatchResult{
			Matched:          true,
			PatternID:        p.ID,
			PatternType:      p.PatternType,
			QueryType:        p.QueryType,
			Confidence:       0.7 + 0.3*p.EffectivenessScore,
			EstimatedTokens:  p.Tokens,
			FallbackResponse: p.Response,
			IsComplete:       true,
		}
	}

	m.totalMisses++
	return MatchResult{Matched: false, Confidence: 0, IsComplete: false}
}

// RecordFeedback adjusts a pattern's effectiveness from downstream signal
// (e.g. the user immediately rephrased after a canned reply).
func (m *Matcher) RecordFeedback(id string, helpful bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.registry {
		if p.ID != id {
			continue
		}
		if helpful {
			p.EffectivenessScore = clamp01(p.EffectivenessScore + effectivenessStep)
		} else {
			p.EffectivenessScore = clamp01(p.EffectivenessScore - effectivenessPenalty)
		}
		return
	}
}

// Cleanup removes patterns that have proven ineffective: effectiveness
// below 0.3 after at least 10 hits. Returns the removed pattern IDs.
func (m *Matcher) Cleanup() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	kept := m.registry[:0]
	for _, p := range m.registry {
		if p.HitCount >= cleanupMinHits && p.EffectivenessScore < cleanupThreshold {
			removed = append(removed, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	m.registry = kept
	if len(removed) > 0 {
		m.logger.Infof("cleanup removed %d ineffective patterns: %v", len(removed), removed)
	}
	return removed
}

// Stats returns snapshots of every pattern in registry order.
func (m *Matcher) Stats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Stats, 0, len(m.registry))
	for _, p := range m.registry {
		out = append(out, Stats{
			Definition:         p.Definition,
			HitCount:           p.HitCount,
			EffectivenessScore: p.EffectivenessScore,
		})
	}
	return out
}

// Len returns the number of registered patterns.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.registry)
}

// SavingsReport summarizes token savings from pattern short-circuits.
type SavingsReport struct {
	Matches        int64   `json:"matches"`
	Misses         int64   `json:"misses"`
	BaselineTokens int64   `json:"baseline_tokens"`
	ActualTokens   int64   `json:"actual_tokens"`
	SavedTokens    int64   `json:"saved_tokens"`
	Efficiency     float64 `json:"efficiency"`
}

// Savings returns cumulative token savings. Efficiency is saved/baseline.
func (m *Matcher) Savings() SavingsReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := SavingsReport{
		Matches:        m.totalMatches,
		Misses:         m.totalMisses,
		BaselineTokens: m.totalBaseline,
		ActualTokens:   m.totalActual,
		SavedTokens:    m.totalBaseline - m.totalActual,
	}
	if r.BaselineTokens > 0 {
		r.Efficiency = float64(r.SavedTokens) / float64(r.BaselineTokens)
	}
	return r
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
