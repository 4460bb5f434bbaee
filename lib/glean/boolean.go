// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import "github.com/bureau-foundation/glean/lib/metric"

// BooleanMetric records a true/false flag.
type BooleanMetric struct {
	meta metric.CommonMetricData
}

// NewBooleanMetric returns a boolean metric described by meta.
func NewBooleanMetric(meta metric.CommonMetricData) *BooleanMetric {
	return &BooleanMetric{meta: meta}
}

// Meta returns the metric's identifying data.
func (m *BooleanMetric) Meta() metric.CommonMetricData {
	return m.meta
}

// Set records value.
func (m *BooleanMetric) Set(g *Glean, value bool) {
	g.RecordMetric(m.meta, metric.Boolean(value))
}

// Value returns the stored value in ping. The bool is false when none
// is stored.
func (m *BooleanMetric) Value(g *Glean, ping string) (bool, bool) {
	value, ok := g.lookup(m.meta, ping).(metric.Boolean)
	return bool(value), ok
}
