// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordQuery(t *testing.T) {
	m := New()

	m.RecordQuery("cached_response", QueryTimings{
		PatternMatching: time.Millisecond,
		Total:           2 * time.Millisecond,
	}, 0.9, 50, 800)
	m.RecordQuery("comprehensive_analysis", QueryTimings{Total: 10 * time.Millisecond}, 0.6, 1500, 6000)

	require.Equal(t, 1.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues("cached_response")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues("comprehensive_analysis")))
}

func TestRecordCacheAndFallback(t *testing.T) {
	m := New()

	m.RecordCache("pattern", true)
	m.RecordCache("pattern", true)
	m.RecordCache("pattern", false)
	m.RecordFallback(4)
	m.RecordFallback(7)

	require.Equal(t, 2.0, testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("pattern", "hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("pattern", "miss")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.fallbacksTotal.WithLabelValues("emergency")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.fallbacksTotal.WithLabelValues("unknown")))
}

func TestSetBreakerOpen(t *testing.T) {
	m := New()

	m.SetBreakerOpen("classifier", true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.breakerOpen.WithLabelValues("classifier")))

	m.SetBreakerOpen("classifier", false)
	require.Equal(t, 0.0, testutil.ToFloat64(m.breakerOpen.WithLabelValues("classifier")))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordCache("result", true)
	require.Equal(t, 0.0, testutil.ToFloat64(b.cacheHitsTotal.WithLabelValues("result", "hit")))
	require.NotSame(t, a.Registry(), b.Registry())
}
