// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classifier

import "strings"

// Per-family scoring increments. Tunable heuristics.
const (
	technicalTermStep  = 0.18
	proximityBonus     = 0.20
	proximityMaxGap    = 3
	errorFamilyBase    = 0.25
	errorExtraMatch    = 0.10
	pronounStep        = 0.15
	continuationStep   = 0.20
	historyBonus       = 0.20
	indicatorCapPerFam = 8
)

// scoreTechnical measures technical-term density plus a proximity bonus
// for verb-noun pairs within a small word distance.
func scoreTechnical(normalized string, words []string) (float64, []Indicator) {
	var indicators []Indicator
	verbPositions := []int{}
	nounPositions := []int{}
	matches := 0

	for i, raw := range words {
		word := cleanWord(raw)
		if technicalVerbs[word] {
			matches++
			verbPositions = append(verbPositions, i)
			if len(indicators) < indicatorCapPerFam {
				indicators = append(indicators, Indicator{Type: "technical_verb", Signal: word, Confidence: 0.7, Weight: technicalTermStep})
			}
		}
		if technicalNouns[word] {
			matches++
			nounPositions = append(nounPositions, i)
			if len(indicators) < indicatorCapPerFam {
				indicators = append(indicators, Indicator{Type: "technical_noun", Signal: word, Confidence: 0.7, Weight: technicalTermStep})
			}
		}
	}

	score := float64(matches) * technicalTermStep
	if pairWithinGap(verbPositions, nounPositions, proximityMaxGap) {
		score += proximityBonus
		indicators = append(indicators, Indicator{Type: "verb_noun_proximity", Signal: "verb-noun pair", Confidence: 0.8, Weight: proximityBonus})
	}
	return clamp01(score), indicators
}

// pairWithinGap reports whether any verb/noun position pair is within gap.
func pairWithinGap(verbs, nouns []int, gap int) bool {
	for _, v := range verbs {
		for _, n := range nouns {
			d := v - n
			if d < 0 {
				d = -d
			}
			if d != 0 && d <= gap {
				return true
			}
		}
	}
	return false
}

// scoreSocial matches greeting, politeness, acknowledgment and farewell
// families. Short queries that are mostly social get a boost.
func scoreSocial(normalized string) (float64, []Indicator) {
	var indicators []Indicator
	score := 0.0

	families := []struct {
		name   string
		re     stringMatcher
		weight float64
	}{
		{"social_greeting", greetingRe, 0.5},
		{"social_politeness", politenessRe, 0.3},
		{"social_acknowledgment", acknowledgmentRe, 0.3},
		{"social_farewell", farewellRe, 0.4},
	}
	for _, fam := range families {
		if match := fam.re.FindString(normalized); match != "" {
			score += fam.weight
			indicators = append(indicators, Indicator{Type: fam.name, Signal: match, Confidence: 0.8, Weight: fam.weight})
		}
	}
	if score > 0 && len(strings.Fields(normalized)) <= 3 {
		score += 0.2
	}
	return clamp01(score), indicators
}

// scoreComplexity matches architecture/security vocabulary, multi-file
// phrasing and explicit multi-step process phrasing.
func scoreComplexity(normalized string) (float64, []Indicator) {
	var indicators []Indicator
	score := 0.0

	families := []struct {
		name   string
		re     stringMatcher
		weight float64
	}{
		{"complexity_architecture", architectureRe, 0.35},
		{"complexity_security", securityRe, 0.35},
		{"multi_file", multiFileRe, 0.30},
		{"multi_step", multiStepRe, 0.20},
	}
	for _, fam := range families {
		if match := fam.re.FindString(normalized); match != "" {
			score += fam.weight
			indicators = append(indicators, Indicator{Type: fam.name, Signal: match, Confidence: 0.75, Weight: fam.weight})
		}
	}
	return clamp01(score), indicators
}

// scoreError matches exception names (on the original query, exception
// names are CamelCase), stack-trace markers, HTTP status codes and failure
// vocabulary. Repeated failure matches escalate.
func scoreError(original, normalized string) (float64, []Indicator) {
	var indicators []Indicator
	score := 0.0

	if match := exceptionRe.FindString(original); match != "" {
		score += 0.35
		indicators = append(indicators, Indicator{Type: "error_exception", Signal: match, Confidence: 0.9, Weight: 0.35})
	}
	if match := stackTraceRe.FindString(original); match != "" {
		score += 0.45
		indicators = append(indicators, Indicator{Type: "error_stack_trace", Signal: match, Confidence: 0.9, Weight: 0.45})
	}
	if match := httpStatusRe.FindString(normalized); match != "" {
		score += 0.25
		indicators = append(indicators, Indicator{Type: "error_http_status", Signal: match, Confidence: 0.7, Weight: 0.25})
	}
	if matches := failureRe.FindAllString(normalized, -1); len(matches) > 0 {
		weight := errorFamilyBase + float64(len(matches)-1)*errorExtraMatch
		if weight > 0.45 {
			weight = 0.45
		}
		score += weight
		indicators = append(indicators, Indicator{Type: "error_keyword", Signal: strings.Join(matches, ","), Confidence: 0.75, Weight: weight})
	}
	return clamp01(score), indicators
}

// scoreContextDependency counts reference pronouns, continuation words and
// followup phrasing, boosted when history is present.
func scoreContextDependency(normalized string, words []string, hasHistory bool) (float64, []Indicator) {
	var indicators []Indicator
	score := 0.0

	if pronouns := pronounRe.FindAllString(normalized, -1); len(pronouns) > 0 {
		w := float64(len(pronouns)) * pronounStep
		score += w
		indicators = append(indicators, Indicator{Type: "context_pronoun", Signal: strings.Join(pronouns, ","), Confidence: 0.6, Weight: w})
	}
	if conts := continuationRe.FindAllString(normalized, -1); len(conts) > 0 {
		w := float64(len(conts)) * continuationStep
		score += w
		indicators = append(indicators, Indicator{Type: "continuation_word", Signal: strings.Join(conts, ","), Confidence: 0.7, Weight: w})
	}
	if match := followupRe.FindString(normalized); match != "" {
		score += 0.2
		indicators = append(indicators, Indicator{Type: "followup_phrase", Signal: strings.TrimSpace(match), Confidence: 0.6, Weight: 0.2})
	}
	if hasHistory && score > 0 {
		score += historyBonus
		indicators = append(indicators, Indicator{Type: "history_present", Signal: "non-empty history", Confidence: 0.9, Weight: historyBonus})
	}
	return clamp01(score), indicators
}

// stringMatcher is the subset of *regexp.Regexp the scorers need; it keeps
// the family tables testable.
type stringMatcher interface {
	FindString(s string) string
}

// cleanWord strips surrounding punctuation for dictionary lookup.
func cleanWord(w string) string {
	return strings.Trim(w, ".,!?;:()[]{}\"'`")
}
