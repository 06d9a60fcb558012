// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relevance

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tesselai/contextgate/internal/chat"
	"github.com/tesselai/contextgate/internal/tokens"
)

// Options tunes context retrieval.
type Options struct {
	// Threshold is the minimum relevance score to keep a message.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// MaxMessages caps the selection.
	MaxMessages int `yaml:"max-messages" json:"max_messages"`
}

// DefaultOptions returns the standard threshold (0.3) and cap (5).
func DefaultOptions() Options {
	return Options{Threshold: 0.3, MaxMessages: 5}
}

// Result is the outcome of a context retrieval.
type Result struct {
	SelectedMessages []RelevantMessage `json:"selected_messages"`
	TotalConsidered  int               `json:"total_considered"`
	EstimatedTokens  int               `json:"estimated_tokens"`
	// QualityScore is the mean relevance of the selection.
	QualityScore float64 `json:"quality_score"`
	// Degraded reports that scoring failed and the recency fallback was
	// used.
	Degraded bool `json:"degraded,omitempty"`
}

// Retriever selects relevant history for queries that need it.
type Retriever struct {
	strategy  Strategy
	estimator *tokens.Estimator
	logger    *log.Entry
}

// NewRetriever creates a retriever. A nil strategy uses the default
// weighted formula; a nil estimator uses the simple word-count method.
func NewRetriever(strategy Strategy, estimator *tokens.Estimator) *Retriever {
	if strategy == nil {
		strategy = NewWeightedStrategy()
	}
	if estimator == nil {
		estimator = tokens.NewEstimator(tokens.MethodSimple)
	}
	return &Retriever{
		strategy:  strategy,
		estimator: estimator,
		logger:    log.WithField("component", "relevance"),
	}
}

// FindRelevantContext scores every history message, keeps those at or
// above the threshold, sorts descending and takes the top N. It never
// fails: any scoring panic degrades to pure-recency selection of the last
// 3 messages with a fixed 0.5 relevance placeholder.
func (r *Retriever) FindRelevantContext(query string, history *chat.Context, opts Options) (result Result) {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.3
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 5
	}
	if history.Len() == 0 {
		return Result{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warnf("relevance scoring failed (%v), using recency fallback", rec)
			result = r.recencyFallback(history)
		}
	}()

	now := time.Now()
	scored := make([]RelevantMessage, 0, history.Len())
	for _, msg := range history.Messages {
		rm := r.strategy.Score(query, msg, now)
		if rm.RelevanceScore >= opts.Threshold {
			scored = append(scored, rm)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	if len(scored) > opts.MaxMessages {
		scored = scored[:opts.MaxMessages]
	}

	return Result{
		SelectedMessages: scored,
		TotalConsidered:  history.Len(),
		EstimatedTokens:  r.estimateTokens(scored),
		QualityScore:     meanScore(scored),
	}
}

// recencyFallback selects the last 3 messages with a fixed 0.5 relevance.
func (r *Retriever) recencyFallback(history *chat.Context) Result {
	n := history.Len()
	take := 3
	if n < take {
		take = n
	}
	selected := make([]RelevantMessage, 0, take)
	for _, msg := range history.Messages[n-take:] {
		selected = append(selected, RelevantMessage{
			Content:        msg.Content,
			Role:           msg.Role,
			RelevanceScore: 0.5,
		})
	}
	return Result{
		SelectedMessages: selected,
		TotalConsidered:  n,
		EstimatedTokens:  r.estimateTokens(selected),
		QualityScore:     0.5,
		Degraded:         true,
	}
}

func (r *Retriever) estimateTokens(selected []RelevantMessage) int {
	total := 0
	for _, m := range selected {
		total += r.estimator.Estimate(m.Content)
	}
	return total
}

func meanScore(selected []RelevantMessage) float64 {
	if len(selected) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range selected {
		sum += m.RelevanceScore
	}
	return sum / float64(len(selected))
}
