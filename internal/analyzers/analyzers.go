// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package analyzers implements the four independent intent-analysis passes:
// surface (social), deep (technical), contextual (history dependency) and
// complexity (escalation). The passes share no mutable state and are safe
// to run concurrently.
package analyzers

// LayerType identifies an analysis pass.
type LayerType string

const (
	LayerSurface    LayerType = "surface"
	LayerDeep       LayerType = "deep"
	LayerContextual LayerType = "contextual"
	LayerComplexity LayerType = "complexity"
)

// Indicator is one piece of evidence an analyzer found.
type Indicator struct {
	Type   string  `json:"type"`
	Signal string  `json:"signal"`
	Weight float64 `json:"weight"`
}

// Base carries the fields every analyzer result shares.
type Base struct {
	Type       LayerType   `json:"type"`
	Confidence float64     `json:"confidence"`
	Indicators []Indicator `json:"indicators,omitempty"`
}

// IntentAnalysis aggregates the per-layer results for a query. Overall
// confidence is the unweighted mean of the completed layers.
type IntentAnalysis struct {
	Surface    *SurfaceResult    `json:"surface,omitempty"`
	Deep       *DeepResult       `json:"deep,omitempty"`
	Contextual *ContextualResult `json:"contextual,omitempty"`
	Complexity *ComplexityResult `json:"complexity,omitempty"`

	OverallConfidence float64 `json:"overall_confidence"`
}

// Combine computes the overall confidence as the unweighted mean of the
// layers that produced a result.
func (a *IntentAnalysis) Combine() {
	sum, n := 0.0, 0
	if a.Surface != nil {
		sum += a.Surface.Confidence
		n++
	}
	if a.Deep != nil {
		sum += a.Deep.Confidence
		n++
	}
	if a.Contextual != nil {
		sum += a.Contextual.Confidence
		n++
	}
	if a.Complexity != nil {
		sum += a.Complexity.Confidence
		n++
	}
	if n > 0 {
		a.OverallConfidence = sum / float64(n)
	}
}

// LayerConfidences lists the confidences of completed layers, for the
// cross-layer consistency check in the confidence scorer.
func (a *IntentAnalysis) LayerConfidences() []float64 {
	var out []float64
	if a.Surface != nil {
		out = append(out, a.Surface.Confidence)
	}
	if a.Deep != nil {
		out = append(out, a.Deep.Confidence)
	}
	if a.Contextual != nil {
		out = append(out, a.Contextual.Confidence)
	}
	if a.Complexity != nil {
		out = append(out, a.Complexity.Confidence)
	}
	return out
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
