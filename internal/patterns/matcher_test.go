// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patterns

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newDefaultMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher(DefaultDefinitions())
	require.NoError(t, err)
	return m
}

func TestDefaultDefinitions_FreshSlice(t *testing.T) {
	defs := DefaultDefinitions()
	defs[0].ID = "mutated"
	defs = append(defs, Definition{ID: "extra", Regex: `^x$`})

	again := DefaultDefinitions()
	require.Equal(t, "pure_greeting", again[0].ID)
	require.Len(t, again, len(defs)-1)
}

func TestMatcher_Greeting(t *testing.T) {
	m := newDefaultMatcher(t)

	tests := []struct {
		query   string
		wantID  string
		matched bool
	}{
		{"hello", "pure_greeting", true},
		{"  Hello!  ", "pure_greeting", true},
		{"good morning", "pure_greeting", true},
		{"thanks", "gratitude", true},
		{"thank you!", "gratitude", true},
		{"bye", "farewell", true},
		{"ok", "acknowledgment", true},
		{"yes", "affirmation", true},
		{"how do I fix this nil pointer panic", "", false},
		{"hello, can you debug my server", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := m.Match(tt.query)
			require.Equal(t, tt.matched, res.Matched)
			if tt.matched {
				require.Equal(t, tt.wantID, res.PatternID)
				require.True(t, res.IsComplete)
				require.NotEmpty(t, res.FallbackResponse)
				require.Greater(t, res.Confidence, 0.0)
				require.Greater(t, res.EstimatedTokens, 0)
			} else {
				require.False(t, res.IsComplete)
				require.Zero(t, res.Confidence)
			}
		})
	}
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	m, err := NewMatcher([]Definition{
		{ID: "broad", Regex: `hello`, Response: "broad", Tokens: 10},
		{ID: "narrow", Regex: `^hello$`, Response: "narrow", Tokens: 10},
	})
	require.NoError(t, err)

	res := m.Match("hello")
	require.Equal(t, "broad", res.PatternID, "registration order decides, no backtracking")
}

func TestMatcher_Deterministic(t *testing.T) {
	m := newDefaultMatcher(t)
	first := m.Match("hello")
	second := m.Match("hello")
	require.Equal(t, first.PatternID, second.PatternID)
	require.Equal(t, first.EstimatedTokens, second.EstimatedTokens)
	require.Equal(t, first.FallbackResponse, second.FallbackResponse)
}

func TestMatcher_HitCountAndEffectiveness(t *testing.T) {
	m := newDefaultMatcher(t)

	for i := 0; i < 3; i++ {
		res := m.Match("thanks")
		require.True(t, res.Matched)
	}
	for _, s := range m.Stats() {
		if s.ID == "gratitude" {
			require.Equal(t, int64(3), s.HitCount)
			require.Greater(t, s.EffectivenessScore, 0.5, "effectiveness grows with hits")
			require.LessOrEqual(t, s.EffectivenessScore, 1.0)
			return
		}
	}
	t.Fatal("gratitude pattern not found in stats")
}

func TestMatcher_GuardCondition(t *testing.T) {
	m := newDefaultMatcher(t)

	res := m.MatchWithEnv("help", Env{HistoryLen: 0})
	require.True(t, res.Matched)
	require.Equal(t, "capability_query", res.PatternID)

	res = m.MatchWithEnv("help", Env{HistoryLen: 4})
	require.False(t, res.Matched, "guard should reject mid-conversation help")
}

func TestMatcher_GuardFailureNeverRaises(t *testing.T) {
	m, err := NewMatcher([]Definition{
		{ID: "guarded", Regex: `^ping$`, Response: "pong", Tokens: 5, Condition: "HistoryLen < 2"},
	})
	require.NoError(t, err)

	// A failing guard only skips the pattern.
	res := m.MatchWithEnv("ping", Env{HistoryLen: 5})
	require.False(t, res.Matched)
}

func TestMatcher_InvalidDefinitions(t *testing.T) {
	_, err := NewMatcher([]Definition{{ID: "bad", Regex: `([`}})
	require.Error(t, err)

	_, err = NewMatcher([]Definition{{Regex: `ok`}})
	require.Error(t, err)

	_, err = NewMatcher([]Definition{{ID: "badcond", Regex: `ok`, Condition: "1 +"}})
	require.Error(t, err)
}

func TestMatcher_Cleanup(t *testing.T) {
	m, err := NewMatcher([]Definition{
		{ID: "weak", Regex: `^meh$`, Response: "r", Tokens: 5, Effectiveness: 0.2},
		{ID: "strong", Regex: `^yay$`, Response: "r", Tokens: 5, Effectiveness: 0.9},
	})
	require.NoError(t, err)

	// Not enough hits yet: cleanup keeps everything.
	require.Empty(t, m.Cleanup())

	for i := 0; i < cleanupMinHits; i++ {
		m.Match("meh")
		m.RecordFeedback("weak", false)
		m.Match("yay")
	}

	removed := m.Cleanup()
	require.Equal(t, []string{"weak"}, removed)
	require.Equal(t, 1, m.Len())
}

func TestMatcher_Savings(t *testing.T) {
	m := newDefaultMatcher(t)

	m.Match("hello") // SIMPLE baseline 800, pattern 50
	m.Match("some complex technical question")

	s := m.Savings()
	require.Equal(t, int64(1), s.Matches)
	require.Equal(t, int64(1), s.Misses)
	require.Equal(t, int64(800), s.BaselineTokens)
	require.Equal(t, int64(50), s.ActualTokens)
	require.Equal(t, int64(750), s.SavedTokens)
	require.InDelta(t, 750.0/800.0, s.Efficiency, 1e-9)
}

func TestMatcher_ExportImportRoundTrip(t *testing.T) {
	m := newDefaultMatcher(t)
	m.Match("hello")
	m.Match("hello")

	data, err := m.Export()
	require.NoError(t, err)

	fresh, err := NewMatcher(nil)
	require.NoError(t, err)
	n, err := fresh.Import(data)
	require.NoError(t, err)
	require.Equal(t, len(DefaultDefinitions()), n)

	// Learned state survives the round trip.
	for _, s := range fresh.Stats() {
		if s.ID == "pure_greeting" {
			require.Equal(t, int64(2), s.HitCount)
			require.Greater(t, s.EffectivenessScore, 0.5)
		}
	}

	// Registry order survives too.
	orig := m.Stats()
	restored := fresh.Stats()
	require.Equal(t, len(orig), len(restored))
	for i := range orig {
		require.Equal(t, orig[i].ID, restored[i].ID)
	}
}

func TestMatcher_ImportInvalid(t *testing.T) {
	m, err := NewMatcher(nil)
	require.NoError(t, err)

	_, err = m.Import([]byte("not json"))
	require.Error(t, err)

	_, err = m.Import([]byte(`{"patterns": "nope"}`))
	require.Error(t, err)
}

func TestLoadFile_AndWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	content := `
patterns:
  - id: custom_ping
    regex: "^ping$"
    response: "pong"
    tokens: 5
    query-type: SIMPLE
    pattern-type: small_talk
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := NewMatcher(nil)
	require.NoError(t, err)
	w, err := NewWatcher(m, path)
	require.NoError(t, err)
	defer w.Close()

	res := m.Match("ping")
	require.True(t, res.Matched)
	require.Equal(t, "custom_ping", res.PatternID)

	// Rewrite the file and wait for the debounced reload.
	updated := `
patterns:
  - id: custom_ping
    regex: "^ping$"
    response: "pong v2"
    tokens: 6
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		return m.Match("ping").FallbackResponse == "pong v2"
	}, 3*time.Second, 50*time.Millisecond)
}
