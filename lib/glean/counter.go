// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"fmt"

	"github.com/bureau-foundation/glean/lib/metric"
)

// CounterMetric records a running total. The total saturates at the
// largest int32.
type CounterMetric struct {
	meta metric.CommonMetricData
}

// NewCounterMetric returns a counter metric described by meta.
func NewCounterMetric(meta metric.CommonMetricData) *CounterMetric {
	return &CounterMetric{meta: meta}
}

// Meta returns the metric's identifying data.
func (m *CounterMetric) Meta() metric.CommonMetricData {
	return m.meta
}

// Add increases the counter by amount. Amounts below one record an
// InvalidValue error and leave the counter unchanged.
func (m *CounterMetric) Add(g *Glean, amount int32) {
	if amount <= 0 {
		g.recordError(m.meta, InvalidValue, fmt.Sprintf("added non-positive value %d", amount), 1)
		return
	}
	g.RecordMetricWith(m.meta, func(current metric.Metric) metric.Metric {
		existing, _ := current.(metric.Counter)
		return saturatingAdd(existing, amount)
	})
}

// Value returns the stored total in ping.
func (m *CounterMetric) Value(g *Glean, ping string) (int32, bool) {
	value, ok := g.lookup(m.meta, ping).(metric.Counter)
	return int32(value), ok
}
