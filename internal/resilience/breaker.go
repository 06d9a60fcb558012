// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resilience

import (
	"sort"
	"sync"
	"time"
)

// State is the observable circuit state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

const (
	// defaultErrorThreshold errors in Closed trip the breaker.
	defaultErrorThreshold = 5
	// defaultOpenTimeout is how long an open breaker rejects calls before
	// allowing a trial.
	defaultOpenTimeout = 60 * time.Second
	// recoverySuccesses consecutive trial successes close the breaker again.
	recoverySuccesses = 3
)

// Breaker is a per-component circuit breaker. Open breakers reject calls
// until the timeout window elapses; after that, calls are attempted and
// three consecutive successes close the circuit.
type Breaker struct {
	mu   sync.Mutex
	name string

	threshold   int
	openTimeout time.Duration

	open          bool
	errorCount    int
	trialSuccess  int
	totalErrors   int64
	totalSuccess  int64
	lastErrorTime time.Time
	timeoutUntil  time.Time

	now func() time.Time
}

// NewBreaker creates a breaker for a named component. Zero threshold or
// timeout select the defaults (5 errors, 60s).
func NewBreaker(name string, threshold int, openTimeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = defaultErrorThreshold
	}
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	return &Breaker{
		name:        name,
		threshold:   threshold,
		openTimeout: openTimeout,
		now:         time.Now,
	}
}

// Allow reports whether a call may be attempted. An open breaker allows a
// trial call once its timeout window has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	return !b.now().Before(b.timeoutUntil)
}

// RecordSuccess feeds a successful call back into the state machine.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSuccess++
	if b.open {
		b.trialSuccess++
		if b.trialSuccess >= recoverySuccesses {
			b.open = false
			b.errorCount = 0
			b.trialSuccess = 0
		}
		return
	}
	// A success in Closed clears the consecutive error streak.
	b.errorCount = 0
}

// RecordFailure feeds a failed call back into the state machine.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.totalErrors++
	b.lastErrorTime = now
	b.trialSuccess = 0

	if b.open {
		// Failed trial re-arms the timeout window.
		b.timeoutUntil = now.Add(b.openTimeout)
		return
	}

	b.errorCount++
	if b.errorCount >= b.threshold {
		b.open = true
		b.timeoutUntil = now.Add(b.openTimeout)
	}
}

// State returns the observable circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return StateClosed
	}
	if !b.now().Before(b.timeoutUntil) {
		return StateHalfOpen
	}
	return StateOpen
}

// Snapshot is a point-in-time view of a breaker for health reporting.
type Snapshot struct {
	Name          string    `json:"name"`
	State         State     `json:"state"`
	ErrorCount    int64     `json:"error_count"`
	SuccessCount  int64     `json:"success_count"`
	LastErrorTime time.Time `json:"last_error_time,omitempty"`
	TimeoutUntil  time.Time `json:"timeout_until,omitempty"`
}

// Snapshot captures the breaker's current counters and state.
func (b *Breaker) Snapshot() Snapshot {
	state := b.State()
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:          b.name,
		State:         state,
		ErrorCount:    b.totalErrors,
		SuccessCount:  b.totalSuccess,
		LastErrorTime: b.lastErrorTime,
		TimeoutUntil:  b.timeoutUntil,
	}
}

// BreakerSet lazily creates one breaker per component name.
type BreakerSet struct {
	mu          sync.Mutex
	breakers    map[string]*Breaker
	threshold   int
	openTimeout time.Duration
}

// NewBreakerSet creates a registry of breakers sharing one configuration.
func NewBreakerSet(threshold int, openTimeout time.Duration) *BreakerSet {
	return &BreakerSet{
		breakers:    make(map[string]*Breaker),
		threshold:   threshold,
		openTimeout: openTimeout,
	}
}

// For returns the breaker for a component, creating it on first use.
func (s *BreakerSet) For(component string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[component]
	if !ok {
		b = NewBreaker(component, s.threshold, s.openTimeout)
		s.breakers[component] = b
	}
	return b
}

// Snapshots returns a snapshot per known component, sorted by name.
func (s *BreakerSet) Snapshots() []Snapshot {
	s.mu.Lock()
	names := make([]string, 0, len(s.breakers))
	for name := range s.breakers {
		names = append(names, name)
	}
	breakers := make([]*Breaker, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		breakers = append(breakers, s.breakers[name])
	}
	s.mu.Unlock()

	out := make([]Snapshot, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, b.Snapshot())
	}
	return out
}
