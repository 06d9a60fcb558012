// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache provides the multi-layer analysis cache shared by the
// pipeline stages. Each layer has its own eviction policy, TTL, entry cap
// and memory budget; a background sweep removes expired entries and keeps
// layers within budget.
package cache

import (
	"container/list"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

// LayerName identifies one of the four cache layers.
type LayerName string

const (
	// LayerPattern caches pattern-match results (LFU, long TTL).
	LayerPattern LayerName = "pattern"
	// LayerAnalysis caches full analysis payloads, zstd-compressed.
	LayerAnalysis LayerName = "analysis"
	// LayerContext caches retrieved context selections.
	LayerContext LayerName = "context"
	// LayerResult caches final analysis results.
	LayerResult LayerName = "result"
)

// Policy selects the eviction policy for a layer.
type Policy string

const (
	PolicyLRU Policy = "lru"
	PolicyLFU Policy = "lfu"
	PolicyTTL Policy = "ttl"
)

// evictFraction is the share of entries removed when a layer hits its
// entry cap, and sweepEvictFraction when it exceeds its memory budget.
const (
	evictFraction      = 0.10
	sweepEvictFraction = 0.20
)

// LayerConfig configures a single cache layer.
type LayerConfig struct {
	// MaxEntries caps the number of entries; overflow evicts the bottom
	// 10% by the layer's policy before insert.
	MaxEntries int `yaml:"max-entries" json:"max_entries"`
	// TTL is the default entry lifetime.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// MaxMemoryMB is the approximate memory budget for the layer.
	MaxMemoryMB int `yaml:"max-memory-mb" json:"max_memory_mb"`
	// Policy selects the eviction policy (lru, lfu, ttl).
	Policy Policy `yaml:"policy" json:"policy"`
	// Compress stores []byte values zstd-compressed.
	Compress bool `yaml:"compress" json:"compress"`
}

// Config holds per-layer configuration. Zero-value layers get defaults.
type Config struct {
	Pattern  LayerConfig `yaml:"pattern" json:"pattern"`
	Analysis LayerConfig `yaml:"analysis" json:"analysis"`
	Context  LayerConfig `yaml:"context" json:"context"`
	Result   LayerConfig `yaml:"result" json:"result"`
	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration `yaml:"sweep-interval" json:"sweep_interval"`
}

// DefaultConfig returns the layer defaults: pattern LFU/24h, analysis
// LRU/1h compressed, context LRU/30m, result LRU/15m.
func DefaultConfig() Config {
	return Config{
		Pattern:       LayerConfig{MaxEntries: 1000, TTL: 24 * time.Hour, MaxMemoryMB: 16, Policy: PolicyLFU},
		Analysis:      LayerConfig{MaxEntries: 2000, TTL: time.Hour, MaxMemoryMB: 64, Policy: PolicyLRU, Compress: true},
		Context:       LayerConfig{MaxEntries: 1000, TTL: 30 * time.Minute, MaxMemoryMB: 32, Policy: PolicyLRU},
		Result:        LayerConfig{MaxEntries: 2000, TTL: 15 * time.Minute, MaxMemoryMB: 32, Policy: PolicyLRU},
		SweepInterval: 5 * time.Minute,
	}
}

// Entry is a single cached value with bookkeeping. Entries never move
// between layers.
type Entry struct {
	Key       string
	Value     any
	Timestamp time.Time
	ExpiresAt time.Time
	HitCount  int64

	compressed bool
	size       int64
	element    *list.Element
}

// Expired reports whether the entry has passed its expiry.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Metrics tracks per-layer cache performance.
type Metrics struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
	Size        int   `json:"size"`
	MemoryBytes int64 `json:"memory_bytes"`
}

// HitRate returns hits / (hits + misses), or 0 with no traffic.
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

// shared zstd codecs; EncodeAll/DecodeAll are safe for concurrent use.
var (
	zstdEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDec, _ = zstd.NewReader(nil)
)

type layer struct {
	name LayerName
	cfg  LayerConfig

	mu      sync.RWMutex
	entries map[string]*Entry
	order   *list.List // front = most recently used
	memory  int64
	metrics Metrics
}

func newLayer(name LayerName, cfg LayerConfig) *layer {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyLRU
	}
	return &layer{
		name:    name,
		cfg:     cfg,
		entries: make(map[string]*Entry),
		order:   list.New(),
	}
}

// Manager owns the four cache layers and the background sweep.
type Manager struct {
	layers map[LayerName]*layer

	sweepInterval time.Duration
	stopOnce      sync.Once
	stopCh        chan struct{}
	wg            sync.WaitGroup

	logger *log.Entry
}

// NewManager creates a cache manager with the given configuration.
// Call Start to run the background sweep.
func NewManager(cfg Config) *Manager {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	def := DefaultConfig()
	fill := func(lc, d LayerConfig) LayerConfig {
		if lc.MaxEntries == 0 && lc.TTL == 0 && lc.MaxMemoryMB == 0 && lc.Policy == "" {
			return d
		}
		if lc.TTL == 0 {
			lc.TTL = d.TTL
		}
		if lc.Policy == "" {
			lc.Policy = d.Policy
		}
		return lc
	}
	m := &Manager{
		layers: map[LayerName]*layer{
			LayerPattern:  newLayer(LayerPattern, fill(cfg.Pattern, def.Pattern)),
			LayerAnalysis: newLayer(LayerAnalysis, fill(cfg.Analysis, def.Analysis)),
			LayerContext:  newLayer(LayerContext, fill(cfg.Context, def.Context)),
			LayerResult:   newLayer(LayerResult, fill(cfg.Result, def.Result)),
		},
		sweepInterval: cfg.SweepInterval,
		stopCh:        make(chan struct{}),
		logger:        log.WithField("component", "cache"),
	}
	return m
}

// Start launches the background sweep goroutine.
func (m *Manager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background sweep. Safe to call multiple times.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// Get retrieves a value from a layer. Expired entries count as misses and
// are removed on access.
func (m *Manager) Get(name LayerName, key string) (any, bool) {
	l, ok := m.layers[name]
	if !ok {
		return nil, false
	}
	return l.get(key)
}

// Set stores a value with the layer's default TTL.
func (m *Manager) Set(name LayerName, key string, value any) error {
	return m.SetWithTTL(name, key, value, 0)
}

// SetWithTTL stores a value with an explicit TTL; ttl<=0 uses the layer
// default. Capacity overflow evicts before insert.
func (m *Manager) SetWithTTL(name LayerName, key string, value any, ttl time.Duration) error {
	l, ok := m.layers[name]
	if !ok {
		return fmt.Errorf("cache: unknown layer %q", name)
	}
	return l.set(key, value, ttl)
}

// Delete removes a single entry.
func (m *Manager) Delete(name LayerName, key string) {
	if l, ok := m.layers[name]; ok {
		l.delete(key)
	}
}

// InvalidatePattern removes all entries in a layer whose key matches the
// given regular expression. Returns the number of removed entries.
func (m *Manager) InvalidatePattern(name LayerName, pattern string) (int, error) {
	l, ok := m.layers[name]
	if !ok {
		return 0, fmt.Errorf("cache: unknown layer %q", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("cache: invalid invalidation pattern: %w", err)
	}
	return l.invalidate(re), nil
}

// Clear empties every layer.
func (m *Manager) Clear() {
	for _, l := range m.layers {
		l.clear()
	}
}

// Sweep removes expired entries from every layer and evicts an additional
// 20% from layers over their memory budget.
func (m *Manager) Sweep() {
	now := time.Now()
	for _, l := range m.layers {
		expired, evicted := l.sweep(now)
		if expired > 0 || evicted > 0 {
			m.logger.Debugf("sweep %s: expired=%d evicted=%d", l.name, expired, evicted)
		}
	}
}

// Metrics returns a snapshot of per-layer metrics.
func (m *Manager) Metrics() map[LayerName]Metrics {
	out := make(map[LayerName]Metrics, len(m.layers))
	for name, l := range m.layers {
		out[name] = l.snapshot()
	}
	return out
}

// Len returns the entry count of a layer.
func (m *Manager) Len(name LayerName) int {
	if l, ok := m.layers[name]; ok {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return len(l.entries)
	}
	return 0
}

// warmEntry is a preloaded cache seed.
type warmEntry struct {
	layer LayerName
	key   string
	value any
}

// WarmUp preloads the pattern layer with canonical greeting and error keys
// so the first requests of a process avoid cold-path work.
func (m *Manager) WarmUp(seeds map[string]any) {
	defaults := []warmEntry{
		{LayerPattern, "warm:hello", "pure_greeting"},
		{LayerPattern, "warm:hi", "pure_greeting"},
		{LayerPattern, "warm:thanks", "gratitude"},
		{LayerPattern, "warm:thank you", "gratitude"},
		{LayerPattern, "warm:error", "error_probe"},
	}
	for _, w := range defaults {
		if err := m.Set(w.layer, w.key, w.value); err != nil {
			m.logger.Warnf("warm-up set failed: %v", err)
		}
	}
	for k, v := range seeds {
		if err := m.Set(LayerPattern, "warm:"+k, v); err != nil {
			m.logger.Warnf("warm-up set failed: %v", err)
		}
	}
}

// --- layer internals ---

func (l *layer) get(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		l.metrics.Misses++
		return nil, false
	}
	if e.Expired(time.Now()) {
		l.removeLocked(e)
		l.metrics.Expirations++
		l.metrics.Misses++
		return nil, false
	}
	e.HitCount++
	l.order.MoveToFront(e.element)
	l.metrics.Hits++

	if e.compressed {
		raw, ok := e.Value.([]byte)
		if !ok {
			return e.Value, true
		}
		plain, err := zstdDec.DecodeAll(raw, nil)
		if err != nil {
			// Corrupt entry; drop it rather than serve garbage.
			l.removeLocked(e)
			l.metrics.Misses++
			l.metrics.Hits--
			return nil, false
		}
		return plain, true
	}
	return e.Value, true
}

func (l *layer) set(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = l.cfg.TTL
	}
	now := time.Now()

	e := &Entry{
		Key:       key,
		Value:     value,
		Timestamp: now,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	if l.cfg.Compress {
		if raw, ok := value.([]byte); ok {
			e.Value = zstdEnc.EncodeAll(raw, nil)
			e.compressed = true
		}
	}
	e.size = sizeOf(e.Value)

	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.entries[key]; ok {
		l.removeLocked(old)
	}
	if len(l.entries) >= l.cfg.MaxEntries {
		l.evictLocked(evictCount(l.cfg.MaxEntries, evictFraction))
	}

	e.element = l.order.PushFront(e)
	l.entries[key] = e
	l.memory += e.size
	l.metrics.Size = len(l.entries)
	l.metrics.MemoryBytes = l.memory
	return nil
}

func (l *layer) delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		l.removeLocked(e)
	}
}

func (l *layer) invalidate(re *regexp.Regexp) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, e := range l.entries {
		if re.MatchString(key) {
			l.removeLocked(e)
			removed++
		}
	}
	return removed
}

func (l *layer) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*Entry)
	l.order = list.New()
	l.memory = 0
	l.metrics.Size = 0
	l.metrics.MemoryBytes = 0
}

func (l *layer) sweep(now time.Time) (expired, evicted int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.Expired(now) {
			l.removeLocked(e)
			l.metrics.Expirations++
			expired++
		}
	}
	budget := int64(l.cfg.MaxMemoryMB) * 1024 * 1024
	if budget > 0 && l.memory > budget {
		evicted = l.evictLocked(evictCount(len(l.entries), sweepEvictFraction))
	}
	return expired, evicted
}

func (l *layer) snapshot() Metrics {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m := l.metrics
	m.Size = len(l.entries)
	m.MemoryBytes = l.memory
	return m
}

// removeLocked unlinks an entry. Must be called with the lock held.
func (l *layer) removeLocked(e *Entry) {
	delete(l.entries, e.Key)
	if e.element != nil {
		l.order.Remove(e.element)
		e.element = nil
	}
	l.memory -= e.size
	l.metrics.Size = len(l.entries)
	l.metrics.MemoryBytes = l.memory
}

// evictLocked removes n entries by the layer's policy: oldest access order
// for LRU, lowest hit count for LFU, nearest expiry for TTL.
func (l *layer) evictLocked(n int) int {
	evicted := 0
	for ; n > 0 && len(l.entries) > 0; n-- {
		var victim *Entry
		switch l.cfg.Policy {
		case PolicyLFU:
			for _, e := range l.entries {
				if victim == nil || e.HitCount < victim.HitCount {
					victim = e
				}
			}
		case PolicyTTL:
			for _, e := range l.entries {
				if victim == nil || e.ExpiresAt.Before(victim.ExpiresAt) {
					victim = e
				}
			}
		default: // LRU
			if back := l.order.Back(); back != nil {
				victim = back.Value.(*Entry)
			}
		}
		if victim == nil {
			break
		}
		l.removeLocked(victim)
		l.metrics.Evictions++
		evicted++
	}
	return evicted
}

// evictCount returns the number of entries a fractional eviction removes,
// at least one.
func evictCount(total int, fraction float64) int {
	n := int(float64(total) * fraction)
	if n < 1 {
		n = 1
	}
	return n
}

// sizeOf approximates the in-memory footprint of a cached value.
func sizeOf(v any) int64 {
	switch t := v.(type) {
	case []byte:
		return int64(len(t)) + 64
	case string:
		return int64(len(t)) + 64
	default:
		return 512
	}
}
