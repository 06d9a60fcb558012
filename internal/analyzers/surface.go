// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package analyzers

import (
	"regexp"
	"strings"
)

// Tone is the detected conversational tone.
type Tone string

const (
	ToneFormal   Tone = "formal"
	ToneCasual   Tone = "casual"
	ToneFriendly Tone = "friendly"
	ToneUrgent   Tone = "urgent"
	ToneConfused Tone = "confused"
)

// SurfaceResult is the social-layer analysis of a query.
type SurfaceResult struct {
	Base

	// MatchedPattern is the name of the first social pattern that matched.
	MatchedPattern string `json:"matched_pattern,omitempty"`
	// PolitenessLevel is in [0,1].
	PolitenessLevel float64 `json:"politeness_level"`
	// Tone is the detected conversational tone.
	Tone Tone `json:"tone"`
	// SuggestedResponseTone hints how a canned or generated reply should
	// sound.
	SuggestedResponseTone string `json:"suggested_response_tone"`
}

// socialPattern is one row of the ordered surface table.
type socialPattern struct {
	name         string
	re           *regexp.Regexp
	weight       float64
	responseTone string
}

// surfaceTable is evaluated in order; the first match names the pattern,
// later matches still contribute to confidence.
var surfaceTable = []socialPattern{
	{"greeting", regexp.MustCompile(`\b(hi|hello|hey|howdy|good (morning|afternoon|evening))\b`), 0.9, "warm"},
	{"farewell", regexp.MustCompile(`\b(bye|goodbye|see you|good night)\b`), 0.9, "warm"},
	{"gratitude", regexp.MustCompile(`\b(thanks|thank you|thx|appreciate)\b`), 0.85, "gracious"},
	{"politeness", regexp.MustCompile(`\b(please|would you|could you|if you don't mind)\b`), 0.5, "helpful"},
	{"acknowledgment", regexp.MustCompile(`\b(ok|okay|got it|sounds good|perfect|great)\b`), 0.6, "brief"},
	{"apology", regexp.MustCompile(`\b(sorry|my bad|apologies|oops)\b`), 0.6, "reassuring"},
	{"help_request", regexp.MustCompile(`\b(help|assist|can you|how do i)\b`), 0.55, "helpful"},
	{"small_talk", regexp.MustCompile(`\b(how are you|what's up|how's it going)\b`), 0.8, "friendly"},
	{"encouragement", regexp.MustCompile(`\b(awesome|amazing|well done|love it|nice work)\b`), 0.6, "friendly"},
	{"confusion", regexp.MustCompile(`\b(confused|don't understand|no idea|lost|what\?+)\b`), 0.7, "patient"},
	{"frustration", regexp.MustCompile(`\b(frustrat\w+|annoying|ugh|argh|this is ridiculous|still broken)\b`), 0.7, "calm"},
}

var (
	urgencyRe   = regexp.MustCompile(`\b(urgent|asap|immediately|right now|production is down|emergency)\b|!{2,}`)
	confusionRe = regexp.MustCompile(`\b(confused|don't understand|no idea|makes no sense)\b|\?{2,}`)
	formalRe    = regexp.MustCompile(`\b(would you kindly|could you please|i would like|regards)\b`)
	friendlyRe  = regexp.MustCompile(`\b(thanks|please|appreciate|hey)\b|:\)|😊|🙂`)
)

// SurfaceAnalyzer matches the ordered social pattern table.
type SurfaceAnalyzer struct{}

func NewSurfaceAnalyzer() *SurfaceAnalyzer { return &SurfaceAnalyzer{} }

// Analyze computes the social reading of a query.
func (*SurfaceAnalyzer) Analyze(query string) *SurfaceResult {
	normalized := strings.ToLower(strings.TrimSpace(query))

	res := &SurfaceResult{Base: Base{Type: LayerSurface}}

	best := 0.0
	for _, p := range surfaceTable {
		match := p.re.FindString(normalized)
		if match == "" {
			continue
		}
		if res.MatchedPattern == "" {
			res.MatchedPattern = p.name
			res.SuggestedResponseTone = p.responseTone
		}
		if p.weight > best {
			best = p.weight
		}
		res.Indicators = append(res.Indicators, Indicator{Type: p.name, Signal: match, Weight: p.weight})
	}
	res.Confidence = best
	res.PolitenessLevel = politeness(normalized)
	res.Tone = detectTone(normalized)

	// Urgent and confused tones override the pattern's suggested tone.
	switch res.Tone {
	case ToneUrgent:
		res.SuggestedResponseTone = "direct"
	case ToneConfused:
		res.SuggestedResponseTone = "patient"
	}
	return res
}

// politeness blends politeness markers into a [0,1] level.
func politeness(normalized string) float64 {
	level := 0.0
	if strings.Contains(normalized, "please") {
		level += 0.4
	}
	if strings.Contains(normalized, "thank") {
		level += 0.3
	}
	if formalRe.MatchString(normalized) {
		level += 0.3
	}
	if strings.Contains(normalized, "could you") || strings.Contains(normalized, "would you") {
		level += 0.2
	}
	return clamp01(level)
}

// detectTone classifies the conversational tone. Urgency and confusion
// checks run before the formal/friendly/casual split.
func detectTone(normalized string) Tone {
	switch {
	case urgencyRe.MatchString(normalized):
		return ToneUrgent
	case confusionRe.MatchString(normalized):
		return ToneConfused
	case formalRe.MatchString(normalized):
		return ToneFormal
	case friendlyRe.MatchString(normalized):
		return ToneFriendly
	default:
		return ToneCasual
	}
}
