// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	cfg := DefaultConfig()
	cfg.Pattern.MaxEntries = 10
	cfg.Result.MaxEntries = 10
	return NewManager(cfg)
}

func TestManager_SetGet(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.Set(LayerResult, "k1", "v1"))
	got, ok := m.Get(LayerResult, "k1")
	require.True(t, ok)
	require.Equal(t, "v1", got)

	_, ok = m.Get(LayerResult, "missing")
	require.False(t, ok)

	// Layers are independent.
	_, ok = m.Get(LayerContext, "k1")
	require.False(t, ok)
}

func TestManager_TTLExpiry(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.SetWithTTL(LayerResult, "short", "v", 20*time.Millisecond))

	_, ok := m.Get(LayerResult, "short")
	require.True(t, ok, "entry should be retrievable before TTL elapses")

	time.Sleep(30 * time.Millisecond)
	_, ok = m.Get(LayerResult, "short")
	require.False(t, ok, "entry should miss after TTL elapses")
}

func TestManager_EvictionOnOverflow(t *testing.T) {
	m := newTestManager()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Set(LayerResult, fmt.Sprintf("k%d", i), i))
	}
	require.Equal(t, 10, m.Len(LayerResult))

	// The 11th insert evicts 10% (1 entry) and never exceeds the cap.
	require.NoError(t, m.Set(LayerResult, "k10", 10))
	require.Equal(t, 10, m.Len(LayerResult))

	metrics := m.Metrics()[LayerResult]
	require.Equal(t, int64(1), metrics.Evictions)
}

func TestManager_LRUEvictsOldest(t *testing.T) {
	m := newTestManager()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Set(LayerResult, fmt.Sprintf("k%d", i), i))
	}
	// Touch k0 so it is no longer the LRU victim.
	_, ok := m.Get(LayerResult, "k0")
	require.True(t, ok)

	require.NoError(t, m.Set(LayerResult, "new", "v"))

	_, ok = m.Get(LayerResult, "k0")
	require.True(t, ok, "recently used entry should survive eviction")
	_, ok = m.Get(LayerResult, "k1")
	require.False(t, ok, "least recently used entry should be evicted")
}

func TestManager_LFUEvictsColdest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pattern.MaxEntries = 3
	m := NewManager(cfg)

	require.NoError(t, m.Set(LayerPattern, "hot", 1))
	require.NoError(t, m.Set(LayerPattern, "warm", 2))
	require.NoError(t, m.Set(LayerPattern, "cold", 3))

	for i := 0; i < 5; i++ {
		m.Get(LayerPattern, "hot")
	}
	m.Get(LayerPattern, "warm")

	require.NoError(t, m.Set(LayerPattern, "new", 4))

	_, ok := m.Get(LayerPattern, "cold")
	require.False(t, ok, "lowest hit-count entry should be evicted")
	_, ok = m.Get(LayerPattern, "hot")
	require.True(t, ok)
}

func TestManager_CompressionRoundTrip(t *testing.T) {
	m := newTestManager()

	payload := bytes.Repeat([]byte("analysis payload "), 100)
	require.NoError(t, m.Set(LayerAnalysis, "a1", payload))

	got, ok := m.Get(LayerAnalysis, "a1")
	require.True(t, ok)
	require.Equal(t, payload, got.([]byte), "compressed entries must round-trip byte-identically")

	// The stored footprint should be smaller than the payload for
	// repetitive content.
	metrics := m.Metrics()[LayerAnalysis]
	require.Less(t, metrics.MemoryBytes, int64(len(payload)))
}

func TestManager_InvalidatePattern(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.Set(LayerContext, "session:a:1", 1))
	require.NoError(t, m.Set(LayerContext, "session:a:2", 2))
	require.NoError(t, m.Set(LayerContext, "session:b:1", 3))

	removed, err := m.InvalidatePattern(LayerContext, `^session:a:`)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, ok := m.Get(LayerContext, "session:b:1")
	require.True(t, ok)

	_, err = m.InvalidatePattern(LayerContext, `[`)
	require.Error(t, err)
}

func TestManager_Sweep(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.SetWithTTL(LayerResult, "gone", 1, 5*time.Millisecond))
	require.NoError(t, m.Set(LayerResult, "kept", 2))
	time.Sleep(10 * time.Millisecond)

	m.Sweep()

	require.Equal(t, 1, m.Len(LayerResult))
	_, ok := m.Get(LayerResult, "kept")
	require.True(t, ok)
}

func TestManager_WarmUp(t *testing.T) {
	m := newTestManager()
	m.WarmUp(map[string]any{"howdy": "pure_greeting"})

	got, ok := m.Get(LayerPattern, "warm:hello")
	require.True(t, ok)
	require.Equal(t, "pure_greeting", got)

	_, ok = m.Get(LayerPattern, "warm:howdy")
	require.True(t, ok)
}

func TestManager_UnknownLayer(t *testing.T) {
	m := newTestManager()
	require.Error(t, m.Set(LayerName("bogus"), "k", "v"))
	_, ok := m.Get(LayerName("bogus"), "k")
	require.False(t, ok)
}

func TestManager_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SweepInterval = 10 * time.Millisecond
	m := NewManager(cfg)
	require.NoError(t, m.SetWithTTL(LayerResult, "gone", 1, time.Millisecond))

	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent

	require.Equal(t, 0, m.Len(LayerResult))
}
