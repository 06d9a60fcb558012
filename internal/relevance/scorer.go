// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package relevance scores prior messages against a query and selects the
// most relevant ones for context assembly. The default scorer combines
// semantic, recency, engagement and technical-overlap signals with fixed
// weights; richer vector-based strategies are pluggable behind the same
// interface.
package relevance

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/tesselai/contextgate/internal/chat"
)

// Weighted-formula constants. The four weights are a compatibility
// contract with downstream consumers and must not drift.
const (
	weightSemantic   = 0.4
	weightRecency    = 0.2
	weightEngagement = 0.2
	weightTechnical  = 0.2

	technicalBoostPerMatch = 0.1
	recencyHalfStep        = 10.0 // minutes per 0.9 decay step
)

// Engagement bonuses added to the 0.5 base, capped at 1.0.
const (
	engagementBase    = 0.5
	bonusFollowup     = 0.3
	bonusCode         = 0.4
	bonusGratitude    = 0.2
	bonusSolved       = 0.5
	bonusErrorContext = 0.3
)

// ScoreBreakdown carries the per-signal values behind a relevance score.
type ScoreBreakdown struct {
	SemanticSimilarity float64 `json:"semantic_similarity"`
	RecencyFactor      float64 `json:"recency_factor"`
	EngagementScore    float64 `json:"engagement_score"`
	TechnicalOverlap   float64 `json:"technical_overlap"`
}

// RelevantMessage is a scored, read-only snapshot of a history message.
type RelevantMessage struct {
	Content        string         `json:"content"`
	Role           chat.Role      `json:"role"`
	RelevanceScore float64        `json:"relevance_score"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
}

// Strategy scores one history message against a query.
type Strategy interface {
	Name() string
	Score(query string, msg chat.Message, now time.Time) RelevantMessage
}

// WeightedStrategy is the default scorer:
// 0.4·semantic + 0.2·recency + 0.2·engagement + 0.2·technical.
type WeightedStrategy struct{}

// NewWeightedStrategy returns the default scoring strategy.
func NewWeightedStrategy() *WeightedStrategy { return &WeightedStrategy{} }

func (*WeightedStrategy) Name() string { return "weighted" }

// Score computes the weighted relevance of msg for query.
func (*WeightedStrategy) Score(query string, msg chat.Message, now time.Time) RelevantMessage {
	b := ScoreBreakdown{
		SemanticSimilarity: SemanticSimilarity(query, msg.Content),
		RecencyFactor:      RecencyFactor(msg.Timestamp, now),
		EngagementScore:    EngagementScore(msg),
		TechnicalOverlap:   TechnicalOverlap(query, msg.Content),
	}
	score := weightSemantic*b.SemanticSimilarity +
		weightRecency*b.RecencyFactor +
		weightEngagement*b.EngagementScore +
		weightTechnical*b.TechnicalOverlap
	return RelevantMessage{
		Content:        msg.Content,
		Role:           msg.Role,
		RelevanceScore: clamp01(score),
		Breakdown:      b,
	}
}

// SemanticSimilarity is the term-overlap ratio between query and content,
// with a +0.1 boost per overlapping recognized technical term. Capped at 1.
func SemanticSimilarity(query, content string) float64 {
	queryTerms := termSet(query)
	contentTerms := termSet(content)
	if len(queryTerms) == 0 || len(contentTerms) == 0 {
		return 0
	}

	overlap := 0
	techMatches := 0
	for term := range queryTerms {
		if contentTerms[term] {
			overlap++
			if isTechnicalTerm(term) {
				techMatches++
			}
		}
	}
	ratio := float64(overlap) / float64(len(queryTerms))
	return clamp01(ratio + float64(techMatches)*technicalBoostPerMatch)
}

// RecencyFactor decays exponentially: 0.9^(minutesAgo/10). Equals 1.0 at
// zero elapsed time and is strictly decreasing in elapsed time.
func RecencyFactor(ts, now time.Time) float64 {
	minutes := now.Sub(ts).Minutes()
	if minutes <= 0 {
		return 1.0
	}
	return math.Pow(0.9, minutes/recencyHalfStep)
}

// EngagementScore starts at 0.5 and adds bonuses for engagement metadata,
// capped at 1.0. Code presence in the content counts even without
// metadata.
func EngagementScore(msg chat.Message) float64 {
	score := engagementBase
	md := msg.Metadata
	if md != nil {
		if md.UserFollowupQuestions {
			score += bonusFollowup
		}
		if md.UserSaidThanks {
			score += bonusGratitude
		}
		if md.LedToWorkingSolution {
			score += bonusSolved
		}
		if md.ErrorContext {
			score += bonusErrorContext
		}
	}
	if (md != nil && md.ContainedCode) || looksLikeCode(msg.Content) {
		score += bonusCode
	}
	return clamp01(score)
}

// TechnicalOverlap is the Jaccard similarity of the technical-term sets of
// query and content.
func TechnicalOverlap(query, content string) float64 {
	a := technicalTermSet(query)
	b := technicalTermSet(content)
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for term := range a {
		if b[term] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// --- term helpers ---

var codeMarkerRe = regexp.MustCompile("```|\\bfunc \\w+\\(|\\bdef \\w+\\(|=>|console\\.log|;\\s*$")

func looksLikeCode(content string) bool {
	return codeMarkerRe.MatchString(content)
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "in": true, "on": true, "of": true, "to": true,
	"and": true, "or": true, "my": true, "your": true, "i": true,
	"you": true, "it": true, "this": true, "that": true, "for": true,
	"with": true, "do": true, "does": true, "how": true, "what": true,
	"can": true, "me": true, "please": true,
}

func termSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:()[]{}\"'`")
		if len(w) < 2 || stopwords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

// relevanceTechTerms recognizes technical vocabulary for the boost and the
// Jaccard overlap.
var relevanceTechTerms = map[string]bool{
	"function": true, "error": true, "api": true, "component": true,
	"database": true, "server": true, "react": true, "python": true,
	"javascript": true, "typescript": true, "golang": true, "query": true,
	"endpoint": true, "class": true, "variable": true, "array": true,
	"debug": true, "exception": true, "module": true, "test": true,
	"async": true, "promise": true, "callback": true, "interface": true,
	"struct": true, "pointer": true, "middleware": true, "docker": true,
	"deploy": true, "bug": true, "crash": true, "panic": true, "undefined": true,
	"null": true, "schema": true, "json": true, "sql": true, "regex": true,
}

func isTechnicalTerm(term string) bool {
	if relevanceTechTerms[term] {
		return true
	}
	// CamelCase identifiers and dotted/parenthesised tokens read as code.
	return strings.ContainsAny(term, "._") && len(term) > 3
}

func technicalTermSet(text string) map[string]bool {
	set := map[string]bool{}
	for term := range termSet(text) {
		if isTechnicalTerm(term) {
			set[term] = true
		}
	}
	return set
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
