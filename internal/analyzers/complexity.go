// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package analyzers

import (
	"regexp"
	"strings"
)

// ComplexityResult is the escalation analysis of a query.
type ComplexityResult struct {
	Base

	// EscalationFactors names the signals that push complexity up.
	EscalationFactors []string `json:"escalation_factors,omitempty"`
	// Tier is the complexity tier (minimal..expert).
	Tier string `json:"tier"`
	// TokenBudget is the recommended context budget for the tier.
	TokenBudget int `json:"token_budget"`
	// RequiredExpertise tags the expertise the query demands.
	RequiredExpertise []string `json:"required_expertise,omitempty"`
	// MultiStep reports explicit multi-step process phrasing.
	MultiStep bool `json:"multi_step"`
}

// TierBudgets maps complexity tiers to recommended token budgets.
var TierBudgets = map[string]int{
	"minimal":  50,
	"basic":    150,
	"moderate": 400,
	"advanced": 800,
	"expert":   1200,
}

// escalationFactor is one row of the escalation table.
type escalationFactor struct {
	name      string
	re        *regexp.Regexp
	weight    float64
	expertise string
}

var escalationTable = []escalationFactor{
	{"error_debugging", regexp.MustCompile(`\b(debug\w*|error|exception|crash\w*|panic|stack trace|not working|broken)\b`), 0.35, "debugging"},
	{"multi_file", regexp.MustCompile(`\b(across (multiple |the )?(files|modules|services)|multiple files|entire (codebase|project|repo)|refactor\w*)\b`), 0.30, "refactoring"},
	{"architecture", regexp.MustCompile(`\b(architecture|design pattern|microservice\w*|distributed|scalab\w+|system design|event[- ]driven)\b`), 0.40, "architecture"},
	{"security", regexp.MustCompile(`\b(security|vulnerabilit\w+|authenticat\w+|encrypt\w+|injection)\b`), 0.35, "security"},
	{"performance", regexp.MustCompile(`\b(performance|optimiz\w+|slow|latency|memory leak|profil\w+)\b`), 0.30, "performance"},
	{"concurrency", regexp.MustCompile(`\b(race condition|deadlock|concurren\w+|goroutine|thread[- ]safe|mutex)\b`), 0.35, "concurrency"},
}

var stepPhraseRe = regexp.MustCompile(`\b(step[- ]by[- ]step|first\b.*\bthen\b|walk me through|plan out|in stages|one at a time)\b`)

// ComplexityAnalyzer flags escalation factors and maps them to a tier and
// token budget.
type ComplexityAnalyzer struct{}

func NewComplexityAnalyzer() *ComplexityAnalyzer { return &ComplexityAnalyzer{} }

// Analyze computes the complexity reading of a query.
func (*ComplexityAnalyzer) Analyze(query string) *ComplexityResult {
	normalized := strings.ToLower(strings.TrimSpace(query))

	res := &ComplexityResult{Base: Base{Type: LayerComplexity}}

	score := 0.0
	seen := map[string]bool{}
	for _, f := range escalationTable {
		match := f.re.FindString(normalized)
		if match == "" {
			continue
		}
		score += f.weight
		res.EscalationFactors = append(res.EscalationFactors, f.name)
		if !seen[f.expertise] {
			seen[f.expertise] = true
			res.RequiredExpertise = append(res.RequiredExpertise, f.expertise)
		}
		res.Indicators = append(res.Indicators, Indicator{Type: f.name, Signal: match, Weight: f.weight})
	}

	if stepPhraseRe.MatchString(normalized) {
		res.MultiStep = true
		score += 0.2
		res.Indicators = append(res.Indicators, Indicator{Type: "multi_step", Signal: "explicit step phrasing", Weight: 0.2})
	}

	// Long queries carry more to analyze even without keyword hits.
	if words := len(strings.Fields(normalized)); words > 40 {
		score += 0.15
	}

	res.Tier = tierFor(score)
	res.TokenBudget = TierBudgets[res.Tier]

	// Confidence tracks how decisive the escalation evidence is.
	switch {
	case score == 0:
		res.Confidence = 0.7 // confidently trivial
	case score >= 0.7:
		res.Confidence = 0.85
	default:
		res.Confidence = 0.6
	}
	return res
}

func tierFor(score float64) string {
	switch {
	case score < 0.15:
		return "minimal"
	case score < 0.35:
		return "basic"
	case score < 0.65:
		return "moderate"
	case score < 1.0:
		return "advanced"
	default:
		return "expert"
	}
}
