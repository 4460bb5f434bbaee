// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"time"

	"github.com/bureau-foundation/glean/lib/metric"
)

// DatetimeMetric records a point in time with its UTC offset.
type DatetimeMetric struct {
	meta metric.CommonMetricData
}

// NewDatetimeMetric returns a datetime metric described by meta.
func NewDatetimeMetric(meta metric.CommonMetricData) *DatetimeMetric {
	return &DatetimeMetric{meta: meta}
}

// Meta returns the metric's identifying data.
func (m *DatetimeMetric) Meta() metric.CommonMetricData {
	return m.meta
}

// Set records value.
func (m *DatetimeMetric) Set(g *Glean, value time.Time) {
	g.RecordMetric(m.meta, metric.Datetime(value))
}

// SetNow records the Glean clock's current time.
func (m *DatetimeMetric) SetNow(g *Glean) {
	m.Set(g, g.clock.Now())
}

// SetIfMissing records the current time unless a value is already
// stored.
func (m *DatetimeMetric) SetIfMissing(g *Glean) {
	now := metric.Datetime(g.clock.Now())
	g.RecordMetricWith(m.meta, func(current metric.Metric) metric.Metric {
		if _, ok := current.(metric.Datetime); ok {
			return nil
		}
		return now
	})
}

// Value returns the stored time in ping.
func (m *DatetimeMetric) Value(g *Glean, ping string) (time.Time, bool) {
	value, ok := g.lookup(m.meta, ping).(metric.Datetime)
	return time.Time(value), ok
}
