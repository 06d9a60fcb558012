// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package analyzers

import (
	"regexp"
	"strings"

	"github.com/tesselai/contextgate/internal/chat"
)

// ContextualResult is the history-dependency analysis of a query.
type ContextualResult struct {
	Base

	// DependencyScore is the context-dependency score in [0,1].
	DependencyScore float64 `json:"dependency_score"`
	// RequiresHistory reports whether the query cannot be understood
	// without prior messages.
	RequiresHistory bool `json:"requires_history"`
	// HistoryDepth is the suggested number of prior messages to retrieve.
	HistoryDepth int `json:"history_depth"`
}

var (
	referenceRe     = regexp.MustCompile(`\b(it|that|this|these|those|them|the one|the same)\b`)
	ctxContinuerRe  = regexp.MustCompile(`\b(also|again|instead|another|as well|what about|and then|next|keep going|continue)\b`)
	ctxFollowupRe   = regexp.MustCompile(`^(why|how come|what if|but |and )`)
	maxHistoryDepth = 5
)

// ContextualAnalyzer scores reference/continuation vocabulary against the
// available history.
type ContextualAnalyzer struct{}

func NewContextualAnalyzer() *ContextualAnalyzer { return &ContextualAnalyzer{} }

// Analyze computes context dependency. The dependency score is pronoun
// density plus continuation words plus a history-presence bonus, capped at
// 1.0; history depth is min(references*2, 5, available history).
func (*ContextualAnalyzer) Analyze(query string, history *chat.Context) *ContextualResult {
	normalized := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(normalized)

	res := &ContextualResult{Base: Base{Type: LayerContextual}}

	references := referenceRe.FindAllString(normalized, -1)
	continuations := ctxContinuerRe.FindAllString(normalized, -1)
	followup := ctxFollowupRe.FindString(normalized)

	score := 0.0
	if len(words) > 0 {
		// Pronoun density: reference words relative to query length.
		density := float64(len(references)) / float64(len(words))
		score += density * 1.5
	}
	score += float64(len(continuations)) * 0.2
	if followup != "" {
		score += 0.2
		res.Indicators = append(res.Indicators, Indicator{Type: "followup", Signal: strings.TrimSpace(followup), Weight: 0.2})
	}
	if history.Len() > 0 && score > 0 {
		score += 0.2
		res.Indicators = append(res.Indicators, Indicator{Type: "history_present", Signal: "non-empty history", Weight: 0.2})
	}
	for _, r := range references {
		res.Indicators = append(res.Indicators, Indicator{Type: "reference", Signal: r, Weight: 0.15})
	}
	for _, c := range continuations {
		res.Indicators = append(res.Indicators, Indicator{Type: "continuation", Signal: c, Weight: 0.2})
	}

	res.DependencyScore = clamp01(score)
	res.RequiresHistory = res.DependencyScore >= 0.3 && history.Len() > 0

	depth := len(references) * 2
	if depth > maxHistoryDepth {
		depth = maxHistoryDepth
	}
	if depth > history.Len() {
		depth = history.Len()
	}
	if res.RequiresHistory && depth == 0 {
		depth = 1
	}
	res.HistoryDepth = depth

	// Confidence is high when the signal is decisive either way.
	if res.DependencyScore >= 0.5 || res.DependencyScore == 0 {
		res.Confidence = 0.8
	} else {
		res.Confidence = 0.5 + res.DependencyScore/2
	}
	return res
}
