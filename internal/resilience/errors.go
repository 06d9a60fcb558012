// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package resilience guards pipeline components with per-component circuit
// breakers, classifies failures, and serves the four-level fallback
// hierarchy when a component cannot answer.
package resilience

import (
	"context"
	"errors"
	"strings"
)

// Category is the failure class an error is sorted into.
type Category string

const (
	// CategoryTransient covers timeout and network shaped errors; retried.
	CategoryTransient Category = "transient"
	// CategoryResource covers memory and exhaustion errors; no retry.
	CategoryResource Category = "resource"
	// CategoryLogic covers nil/index/type errors inside a component.
	CategoryLogic Category = "logic"
	// CategoryAuth covers permission errors; escalated, not auto-recovered.
	CategoryAuth Category = "auth"
	// CategoryUnknown is anything unrecognized; falls back with low confidence.
	CategoryUnknown Category = "unknown"
)

// Action is the recovery an error category maps to.
type Action string

const (
	ActionRetry    Action = "retry"
	ActionFallback Action = "fallback"
	ActionEscalate Action = "escalate"
)

var (
	transientMarkers = []string{"timeout", "timed out", "deadline", "connection", "network", "unreachable", "temporarily", "refused", "reset by peer"}
	resourceMarkers  = []string{"out of memory", "memory", "heap", "resource exhausted", "too many open", "quota"}
	logicMarkers     = []string{"nil pointer", "nil map", "index out of range", "undefined", "invalid type", "type assertion", "divide by zero"}
	authMarkers      = []string{"permission", "unauthorized", "forbidden", "access denied", "authentication"}
)

// Classify sorts an error into its failure category by shape.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return CategoryTransient
		}
	}
	for _, m := range resourceMarkers {
		if strings.Contains(msg, m) {
			return CategoryResource
		}
	}
	for _, m := range logicMarkers {
		if strings.Contains(msg, m) {
			return CategoryLogic
		}
	}
	for _, m := range authMarkers {
		if strings.Contains(msg, m) {
			return CategoryAuth
		}
	}
	return CategoryUnknown
}

// ActionFor maps a failure category to its recovery action.
func ActionFor(cat Category) Action {
	switch cat {
	case CategoryTransient:
		return ActionRetry
	case CategoryAuth:
		return ActionEscalate
	default:
		return ActionFallback
	}
}

// ClassifiedError wraps a component failure with its category so callers
// can choose a recovery without re-parsing the message.
type ClassifiedError struct {
	Component string
	Category  Category
	Err       error
}

func (e *ClassifiedError) Error() string {
	return e.Component + ": " + string(e.Category) + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// ErrCircuitOpen is returned when a component's breaker short-circuits the
// call without attempting it.
var ErrCircuitOpen = errors.New("circuit breaker open")
