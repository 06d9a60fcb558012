// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resilience

import (
	"regexp"
	"strings"
	"time"

	"github.com/tesselai/contextgate/internal/patterns"
)

// Level identifies a rung of the fallback hierarchy.
type Level int

const (
	// LevelPatternReply serves a canned pattern reply (~50-100 tokens).
	LevelPatternReply Level = iota + 1
	// LevelSimpleClassification serves a crude regex classification
	// (~150-400 tokens).
	LevelSimpleClassification
	// LevelFullContext signals pass-through full-context processing
	// (~1500 tokens). Deliberately more expensive than the levels around
	// it: when classification itself is unreliable, sending everything is
	// safer than guessing a subset.
	LevelFullContext
	// LevelEmergency is the minimal last-resort response (50 tokens,
	// confidence 0.1).
	LevelEmergency
)

const (
	fullContextTokens = 1500
	emergencyTokens   = 50

	defaultFallbackTTL = 5 * time.Minute
	cacheKeyPrefixLen  = 32
)

// FallbackResult is a degraded answer produced when a component fails.
type FallbackResult struct {
	Level         Level   `json:"level"`
	Component     string  `json:"component"`
	QueryType     string  `json:"query_type"`
	Strategy      string  `json:"strategy"`
	Response      string  `json:"response,omitempty"`
	TokenEstimate int     `json:"token_estimate"`
	Confidence    float64 `json:"confidence"`
	Cached        bool    `json:"cached"`
}

// patternReplier is the slice of the pattern matcher the fallback ladder
// needs; the engine passes its real matcher.
type patternReplier interface {
	Match(query string) patterns.MatchResult
}

// Crude classification used at level 2, independent of the real classifier
// so it keeps working when the classifier is the failing component.
var (
	fallbackSimpleRe  = regexp.MustCompile(`(?i)^(hi|hello|hey|thanks?|thank you|ok(ay)?|yes|no|bye|goodbye)\b`)
	fallbackComplexRe = regexp.MustCompile(`(?i)\b(architect|design|refactor|migrat|debug|implement|optimi[sz]e|error|exception|crash)\b`)
	fallbackMediumRe  = regexp.MustCompile(`(?i)\b(how|what|why|where|explain|show|help|fix|write|create|add)\b`)
)

// classifyCrudely is the level-2 rung: a handful of regexes standing in
// for the real classifier. The empty return means no rung applies and the
// ladder continues downward.
func classifyCrudely(query string) (queryType string, tokens int) {
	switch {
	case fallbackSimpleRe.MatchString(query):
		return "SIMPLE", 150
	case fallbackComplexRe.MatchString(query):
		// Complex queries are exactly the ones a crude classifier gets
		// wrong; defer to the full-context rung instead.
		return "", 0
	case fallbackMediumRe.MatchString(query):
		return "MEDIUM", 400
	}
	return "", 0
}

// fallbackCacheKey buckets results by component plus a short query prefix
// so repeated failures during an outage reuse one computation.
func fallbackCacheKey(component, query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) > cacheKeyPrefixLen {
		q = q[:cacheKeyPrefixLen]
	}
	return "fallback:" + component + ":" + q
}
