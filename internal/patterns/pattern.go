// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package patterns implements the regex fallback cache: an ordered registry
// of compiled patterns with canned responses that lets trivial queries skip
// the full analysis pipeline entirely.
package patterns

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// PatternType groups patterns by the kind of query they absorb.
type PatternType string

const (
	TypeGreeting        PatternType = "greeting"
	TypeGratitude       PatternType = "gratitude"
	TypeFarewell        PatternType = "farewell"
	TypeAcknowledgment  PatternType = "acknowledgment"
	TypeConfirmation    PatternType = "confirmation"
	TypeSmallTalk       PatternType = "small_talk"
	TypeErrorProbe      PatternType = "error_probe"
	TypeCapabilityQuery PatternType = "capability_query"
)

// Definition is the data-driven description of a pattern, loadable from
// YAML registries or the built-in table.
type Definition struct {
	// ID uniquely identifies the pattern.
	ID string `yaml:"id" json:"id"`
	// Regex is matched against the normalized (trimmed, lowercased) query.
	Regex string `yaml:"regex" json:"regex"`
	// Response is the canned reply emitted verbatim on a match.
	Response string `yaml:"response" json:"response"`
	// Tokens is the token cost reported for the canned response.
	Tokens int `yaml:"tokens" json:"tokens"`
	// QueryType is the classification tier the pattern implies
	// (SIMPLE, MEDIUM, COMPLEX).
	QueryType string `yaml:"query-type" json:"query_type"`
	// PatternType groups the pattern for reporting.
	PatternType PatternType `yaml:"pattern-type" json:"pattern_type"`
	// Condition is an optional expr guard evaluated against the match
	// environment before the pattern is accepted (e.g. "HistoryLen == 0").
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
	// Effectiveness seeds the rolling effectiveness score.
	Effectiveness float64 `yaml:"effectiveness,omitempty" json:"effectiveness,omitempty"`
}

// Env is the environment guard conditions are evaluated against.
type Env struct {
	Query      string `expr:"Query"`
	HistoryLen int    `expr:"HistoryLen"`
	Hour       int    `expr:"Hour"`
}

// Pattern is a compiled registry entry with its learned statistics. The hit
// statistics are the only mutable state and are guarded by the matcher's
// lock.
type Pattern struct {
	Definition

	re      *regexp.Regexp
	program *vm.Program

	// HitCount counts matches since registration or import.
	HitCount int64
	// EffectivenessScore is a rolling score in [0,1].
	EffectivenessScore float64
}

// compile validates the definition and prepares the regex and guard.
func compile(def Definition) (*Pattern, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("patterns: pattern has no id")
	}
	if def.Regex == "" {
		return nil, fmt.Errorf("patterns: pattern %q has no regex", def.ID)
	}
	re, err := regexp.Compile(def.Regex)
	if err != nil {
		return nil, fmt.Errorf("patterns: pattern %q: %w", def.ID, err)
	}
	p := &Pattern{Definition: def, re: re}
	if def.Condition != "" {
		program, err := expr.Compile(def.Condition, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("patterns: pattern %q condition: %w", def.ID, err)
		}
		p.program = program
	}
	if def.Effectiveness > 0 {
		p.EffectivenessScore = def.Effectiveness
	} else {
		p.EffectivenessScore = 0.5
	}
	if def.QueryType == "" {
		p.QueryType = "SIMPLE"
	}
	return p, nil
}

// vmPool reuses expr virtual machines across guard evaluations.
var vmPool = sync.Pool{
	New: func() interface{} { return &vm.VM{} },
}

// guardPasses evaluates the optional condition. Evaluation failures never
// fail the match call; the pattern is simply skipped.
func (p *Pattern) guardPasses(env Env) bool {
	if p.program == nil {
		return true
	}
	machine := vmPool.Get().(*vm.VM)
	out, err := machine.Run(p.program, env)
	vmPool.Put(machine)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
