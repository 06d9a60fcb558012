// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tokens provides token-count estimation for queries and candidate
// context. It supports a fast word-count approximation and an exact BPE
// count via tiktoken, selected at construction.
package tokens

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"
)

// Method selects the estimation strategy.
type Method string

const (
	// MethodSimple approximates tokens as words * 1.3.
	MethodSimple Method = "simple"
	// MethodTiktoken uses the cl100k BPE vocabulary for an exact count.
	MethodTiktoken Method = "tiktoken"
)

// Estimator estimates token counts for text content.
type Estimator struct {
	method Method

	once  sync.Once
	codec tokenizer.Codec
}

// NewEstimator creates an estimator with the given method. An unknown
// method falls back to MethodSimple.
func NewEstimator(method Method) *Estimator {
	if method != MethodSimple && method != MethodTiktoken {
		method = MethodSimple
	}
	return &Estimator{method: method}
}

// Method returns the configured estimation method.
func (e *Estimator) Method() Method {
	return e.method
}

// Estimate returns the estimated token count for content. It never fails:
// if the BPE codec cannot be loaded the simple approximation is used.
func (e *Estimator) Estimate(content string) int {
	if len(content) == 0 {
		return 0
	}
	if e.method == MethodTiktoken {
		if codec := e.loadCodec(); codec != nil {
			if n, err := codec.Count(content); err == nil {
				return n
			}
		}
	}
	return simpleEstimate(content)
}

func (e *Estimator) loadCodec() tokenizer.Codec {
	e.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.WithField("component", "tokens").Warnf("cl100k codec unavailable, using simple estimation: %v", err)
			return
		}
		e.codec = codec
	})
	return e.codec
}

// simpleEstimate uses word count * 1.3. Most BPE tokenizers produce about
// 1.3 tokens per English word.
func simpleEstimate(content string) int {
	return int(float64(countWords(content)) * 1.3)
}

func countWords(content string) int {
	count := 0
	inWord := false
	for _, r := range content {
		space := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if space {
			inWord = false
		} else if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// Baselines maps a query type to the token cost of full context assembly
// for that tier. Used to account savings when a pattern short-circuits.
var Baselines = map[string]int{
	"SIMPLE":  800,
	"MEDIUM":  2500,
	"COMPLEX": 6000,
}

// Baseline returns the full-context token baseline for a query type,
// defaulting to the MEDIUM tier.
func Baseline(queryType string) int {
	if b, ok := Baselines[queryType]; ok {
		return b
	}
	return Baselines["MEDIUM"]
}
