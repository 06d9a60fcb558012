// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patterns

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// exportEnvelope is the JSON shape produced by Export and accepted by
// Import. Learned statistics ride along so a registry round-trips with its
// state.
type exportEnvelope struct {
	Version    int     `json:"version"`
	ExportedAt string  `json:"exported_at"`
	Patterns   []Stats `json:"patterns"`
}

// Export serializes the registry, including learned hit counts and
// effectiveness, to JSON.
func (m *Matcher) Export() ([]byte, error) {
	env := exportEnvelope{
		Version:  1,
		Patterns: m.Stats(),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("patterns: export: %w", err)
	}
	// Stamp the export time after marshal so tests can marshal envelopes
	// deterministically.
	stamped, err := sjson.SetBytes(raw, "exported_at", time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("patterns: export: %w", err)
	}
	return stamped, nil
}

// Import registers every pattern from an exported registry. Entries are
// validated individually; invalid ones are reported but do not abort the
// rest. Learned statistics are restored.
func (m *Matcher) Import(data []byte) (int, error) {
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("patterns: import: invalid JSON")
	}
	root := gjson.ParseBytes(data)
	items := root.Get("patterns")
	if !items.IsArray() {
		// Also accept a bare array of definitions.
		if root.IsArray() {
			items = root
		} else {
			return 0, fmt.Errorf("patterns: import: no patterns array")
		}
	}

	imported := 0
	var firstErr error
	items.ForEach(func(_, item gjson.Result) bool {
		var def Definition
		if err := json.Unmarshal([]byte(item.Raw), &def); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		if err := m.Register(def); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		// Restore learned state when present.
		if hits := item.Get("hit_count"); hits.Exists() {
			m.restoreStats(def.ID, hits.Int(), item.Get("effectiveness_score").Float())
		}
		imported++
		return true
	})

	if imported == 0 && firstErr != nil {
		return 0, fmt.Errorf("patterns: import: %w", firstErr)
	}
	return imported, nil
}

func (m *Matcher) restoreStats(id string, hits int64, effectiveness float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.registry {
		if p.ID == id {
			p.HitCount = hits
			if effectiveness > 0 {
				p.EffectivenessScore = clamp01(effectiveness)
			}
			return
		}
	}
}
