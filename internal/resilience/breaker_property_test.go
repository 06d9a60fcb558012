// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resilience

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for the circuit breaker state machine. Event codes
// drive transitions: 0 = failure, 1 = success, 2 = advance the clock past
// the open timeout.

func TestProperty_BreakerInvariants(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("open implies a future timeout and no throughput", prop.ForAll(
		func(events []int) bool {
			clock := newFakeClock()
			b := newClockedBreaker(clock)

			for _, ev := range events {
				switch ev % 3 {
				case 0:
					b.RecordFailure()
				case 1:
					b.RecordSuccess()
				case 2:
					clock.advance(61 * time.Second)
				}

				switch b.State() {
				case StateOpen:
					snap := b.Snapshot()
					if !snap.TimeoutUntil.After(clock.now()) {
						return false
					}
					if b.Allow() {
						return false
					}
				case StateClosed, StateHalfOpen:
					if !b.Allow() {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.Property("five consecutive failures from closed always open the breaker", prop.ForAll(
		func(priorSuccesses int) bool {
			clock := newFakeClock()
			b := newClockedBreaker(clock)

			for i := 0; i < priorSuccesses; i++ {
				b.RecordSuccess()
			}
			for i := 0; i < 5; i++ {
				b.RecordFailure()
			}
			return b.State() == StateOpen
		},
		gen.IntRange(0, 10),
	))

	properties.Property("recovery always takes exactly three consecutive successes", prop.ForAll(
		func(extraFailures int) bool {
			clock := newFakeClock()
			b := newClockedBreaker(clock)

			for i := 0; i < 5+extraFailures; i++ {
				b.RecordFailure()
			}
			clock.advance(61 * time.Second)

			b.RecordSuccess()
			b.RecordSuccess()
			if b.State() == StateClosed {
				return false
			}
			b.RecordSuccess()
			return b.State() == StateClosed
		},
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
