// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock advances manually so breaker timeouts are deterministic.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func newClockedBreaker(clock *fakeClock) *Breaker {
	b := NewBreaker("test", 5, 60*time.Second)
	b.now = clock.now
	return b
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newClockedBreaker(clock)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		require.Equal(t, StateClosed, b.State(), "stays closed below threshold")
		require.True(t, b.Allow())
	}

	b.RecordFailure() // fifth error trips the breaker
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.Allow())

	snap := b.Snapshot()
	require.True(t, snap.TimeoutUntil.After(clock.now()), "open implies a future timeout")
	require.EqualValues(t, 5, snap.ErrorCount)
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	b := newClockedBreaker(newFakeClock())

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	require.Equal(t, StateClosed, b.State(), "success clears the consecutive error count")
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := newFakeClock()
	b := newClockedBreaker(clock)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	require.False(t, b.Allow())

	clock.advance(59 * time.Second)
	require.False(t, b.Allow(), "still inside the timeout window")

	clock.advance(2 * time.Second)
	require.True(t, b.Allow(), "trial call allowed after timeout")
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	b.RecordSuccess()
	require.Equal(t, StateHalfOpen, b.State(), "two successes are not enough")

	b.RecordSuccess()
	require.Equal(t, StateClosed, b.State(), "three consecutive successes close the circuit")
	require.True(t, b.Allow())
}

func TestBreaker_FailedTrialRearms(t *testing.T) {
	clock := newFakeClock()
	b := newClockedBreaker(clock)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.advance(61 * time.Second)
	require.True(t, b.Allow())

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure() // trial fails, streak resets and window re-arms
	require.False(t, b.Allow())

	clock.advance(61 * time.Second)
	b.RecordSuccess()
	b.RecordSuccess()
	require.Equal(t, StateHalfOpen, b.State(), "the failed trial reset the success streak")
	b.RecordSuccess()
	require.Equal(t, StateClosed, b.State())
}

func TestBreakerSet_LazyPerComponent(t *testing.T) {
	set := NewBreakerSet(5, time.Minute)

	a := set.For("classifier")
	require.Same(t, a, set.For("classifier"))
	require.NotSame(t, a, set.For("analyzers"))

	for i := 0; i < 5; i++ {
		set.For("classifier").RecordFailure()
	}
	require.Equal(t, StateOpen, set.For("classifier").State())
	require.Equal(t, StateClosed, set.For("analyzers").State())

	snaps := set.Snapshots()
	require.Len(t, snaps, 2)
	require.Equal(t, "analyzers", snaps[0].Name, "snapshots are sorted by name")
	require.Equal(t, "classifier", snaps[1].Name)
}
