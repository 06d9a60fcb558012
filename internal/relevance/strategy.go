// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relevance

import (
	"math"
	"strings"
	"time"

	"github.com/tesselai/contextgate/internal/chat"
)

// VectorMode selects how the vector strategy scores content.
type VectorMode string

const (
	ModeTFIDF    VectorMode = "tfidf"
	ModeCosine   VectorMode = "cosine"
	ModeSemantic VectorMode = "semantic"
	ModeHybrid   VectorMode = "hybrid"
)

// BoostFactors multiply the base score when the content carries the given
// signal. Values of 0 mean "no boost" (treated as 1.0).
type BoostFactors struct {
	Code     float64 `yaml:"code" json:"code"`
	Error    float64 `yaml:"error" json:"error"`
	Solution float64 `yaml:"solution" json:"solution"`
	Question float64 `yaml:"question" json:"question"`
}

// VectorConfig configures the richer scoring strategy.
type VectorConfig struct {
	Mode VectorMode `yaml:"mode" json:"mode"`

	// SimilarityWeight and RecencyWeight blend the vector similarity with
	// the recency factor; they default to 0.7/0.3.
	SimilarityWeight float64      `yaml:"similarity-weight" json:"similarity_weight"`
	RecencyWeight    float64      `yaml:"recency-weight" json:"recency_weight"`
	Boosts           BoostFactors `yaml:"boosts" json:"boosts"`
}

// VectorStrategy is the richer, configurable scoring mode. It builds term
// frequency vectors and scores by the configured similarity, then applies
// content boosts.
type VectorStrategy struct {
	cfg VectorConfig
}

// NewVectorStrategy creates a vector strategy; zero-valued config fields
// get defaults (hybrid mode, 0.7/0.3 blend).
func NewVectorStrategy(cfg VectorConfig) *VectorStrategy {
	if cfg.Mode == "" {
		cfg.Mode = ModeHybrid
	}
	if cfg.SimilarityWeight == 0 && cfg.RecencyWeight == 0 {
		cfg.SimilarityWeight = 0.7
		cfg.RecencyWeight = 0.3
	}
	return &VectorStrategy{cfg: cfg}
}

func (s *VectorStrategy) Name() string { return "vector:" + string(s.cfg.Mode) }

// Score computes the configured vector similarity blended with recency and
// multiplied by content boosts.
func (s *VectorStrategy) Score(query string, msg chat.Message, now time.Time) RelevantMessage {
	var sim float64
	switch s.cfg.Mode {
	case ModeTFIDF:
		sim = tfidfSimilarity(query, msg.Content)
	case ModeCosine:
		sim = cosineSimilarity(termFreq(query), termFreq(msg.Content))
	case ModeSemantic:
		sim = SemanticSimilarity(query, msg.Content)
	default: // hybrid: mean of cosine and the semantic overlap
		sim = (cosineSimilarity(termFreq(query), termFreq(msg.Content)) + SemanticSimilarity(query, msg.Content)) / 2
	}

	recency := RecencyFactor(msg.Timestamp, now)
	score := s.cfg.SimilarityWeight*sim + s.cfg.RecencyWeight*recency
	score *= s.boost(msg)

	return RelevantMessage{
		Content:        msg.Content,
		Role:           msg.Role,
		RelevanceScore: clamp01(score),
		Breakdown: ScoreBreakdown{
			SemanticSimilarity: sim,
			RecencyFactor:      recency,
			EngagementScore:    EngagementScore(msg),
			TechnicalOverlap:   TechnicalOverlap(query, msg.Content),
		},
	}
}

func (s *VectorStrategy) boost(msg chat.Message) float64 {
	factor := 1.0
	apply := func(f float64) {
		if f > 0 {
			factor *= f
		}
	}
	md := msg.Metadata
	if (md != nil && md.ContainedCode) || looksLikeCode(msg.Content) {
		apply(s.cfg.Boosts.Code)
	}
	if md != nil && md.ErrorContext {
		apply(s.cfg.Boosts.Error)
	}
	if md != nil && md.LedToWorkingSolution {
		apply(s.cfg.Boosts.Solution)
	}
	if strings.Contains(msg.Content, "?") {
		apply(s.cfg.Boosts.Question)
	}
	return factor
}

// --- vector math ---

func termFreq(text string) map[string]float64 {
	freq := map[string]float64{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:()[]{}\"'`")
		if len(w) < 2 || stopwords[w] {
			continue
		}
		freq[w]++
	}
	return freq
}

func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0.0
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (norm(a) * norm(b))
}

func norm(v map[string]float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// tfidfSimilarity approximates tf-idf weighting over the two documents
// alone: shared rare terms (length-weighted) count more than common ones.
func tfidfSimilarity(query, content string) float64 {
	qf := termFreq(query)
	cf := termFreq(content)
	if len(qf) == 0 || len(cf) == 0 {
		return 0
	}
	score := 0.0
	total := 0.0
	for term, tf := range qf {
		idf := 1.0 + math.Log(1.0+float64(len(term))/4.0)
		total += tf * idf
		if _, ok := cf[term]; ok {
			score += tf * idf
		}
	}
	if total == 0 {
		return 0
	}
	return clamp01(score / total)
}
