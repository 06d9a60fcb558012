// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tokens

import "testing"

func TestEstimator_Simple(t *testing.T) {
	e := NewEstimator(MethodSimple)

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"single word", "hello", 1},
		{"five words", "fix the bug in main", 6}, // 5 * 1.3 = 6.5 -> 6
		{"whitespace only", "   \t\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Estimate(tt.content); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.content, got, tt.want)
			}
		})
	}
}

func TestEstimator_UnknownMethodFallsBack(t *testing.T) {
	e := NewEstimator(Method("bogus"))
	if e.Method() != MethodSimple {
		t.Errorf("expected fallback to simple, got %s", e.Method())
	}
}

func TestEstimator_TiktokenNeverFails(t *testing.T) {
	e := NewEstimator(MethodTiktoken)
	n := e.Estimate("debug this undefined error in my React component")
	if n <= 0 {
		t.Errorf("expected positive token count, got %d", n)
	}
}

func TestBaseline(t *testing.T) {
	if Baseline("SIMPLE") != 800 {
		t.Errorf("unexpected SIMPLE baseline")
	}
	if Baseline("unknown") != Baselines["MEDIUM"] {
		t.Errorf("unknown query type should use MEDIUM baseline")
	}
}
