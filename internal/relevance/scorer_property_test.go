// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relevance

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tesselai/contextgate/internal/chat"
)

// Property-based tests for the relevance scorer.

func TestProperty_ScoreAlwaysBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)
	strategy := NewWeightedStrategy()
	now := time.Now()

	properties.Property("weighted score stays in [0,1] for arbitrary inputs", prop.ForAll(
		func(query, content string, ageMinutes int, code, followup, thanks, solved, errCtx bool) bool {
			msg := chat.NewMessage(chat.RoleUser, content)
			msg.Timestamp = now.Add(-time.Duration(ageMinutes) * time.Minute)
			msg.Metadata = &chat.MessageMetadata{
				ContainedCode:         code,
				UserFollowupQuestions: followup,
				UserSaidThanks:        thanks,
				LedToWorkingSolution:  solved,
				ErrorContext:          errCtx,
			}

			scored := strategy.Score(query, msg, now)
			if scored.RelevanceScore < 0.0 || scored.RelevanceScore > 1.0 {
				return false
			}
			b := scored.Breakdown
			for _, v := range []float64{b.SemanticSimilarity, b.RecencyFactor, b.EngagementScore, b.TechnicalOverlap} {
				if v < 0.0 || v > 1.0 {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.IntRange(0, 60*24*30),
		gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(), gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_RecencyMonotone(t *testing.T) {
	properties := gopter.NewProperties(nil)
	now := time.Now()

	properties.Property("older messages never score higher on recency", prop.ForAll(
		func(aSeconds, extraSeconds int) bool {
			younger := now.Add(-time.Duration(aSeconds) * time.Second)
			older := younger.Add(-time.Duration(extraSeconds) * time.Second)
			return RecencyFactor(older, now) <= RecencyFactor(younger, now)
		},
		gen.IntRange(0, 7*24*3600),
		gen.IntRange(1, 7*24*3600),
	))

	properties.TestingRun(t)
}

func TestProperty_VectorStrategyBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)
	now := time.Now()

	strategies := []*VectorStrategy{
		NewVectorStrategy(VectorConfig{Mode: ModeTFIDF}),
		NewVectorStrategy(VectorConfig{Mode: ModeCosine}),
		NewVectorStrategy(VectorConfig{Mode: ModeSemantic}),
		NewVectorStrategy(VectorConfig{Mode: ModeHybrid, Boosts: BoostFactors{Code: 2.0, Error: 2.0, Solution: 2.0, Question: 2.0}}),
	}

	properties.Property("vector score stays in [0,1] across modes and boosts", prop.ForAll(
		func(query, content string, ageMinutes int) bool {
			msg := chat.NewMessage(chat.RoleAssistant, content)
			msg.Timestamp = now.Add(-time.Duration(ageMinutes) * time.Minute)
			for _, s := range strategies {
				scored := s.Score(query, msg, now)
				if scored.RelevanceScore < 0.0 || scored.RelevanceScore > 1.0 {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.IntRange(0, 60*24),
	))

	properties.TestingRun(t)
}
