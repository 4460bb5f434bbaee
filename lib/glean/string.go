// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"fmt"

	"github.com/bureau-foundation/glean/lib/metric"
)

// MaxStringLength is the longest string value stored, in bytes.
const MaxStringLength = 100

// StringMetric records a short text value.
type StringMetric struct {
	meta metric.CommonMetricData
}

// NewStringMetric returns a string metric described by meta.
func NewStringMetric(meta metric.CommonMetricData) *StringMetric {
	return &StringMetric{meta: meta}
}

// Meta returns the metric's identifying data.
func (m *StringMetric) Meta() metric.CommonMetricData {
	return m.meta
}

// Set records value. Values longer than MaxStringLength are truncated
// and an InvalidOverflow error is recorded.
func (m *StringMetric) Set(g *Glean, value string) {
	truncated, cut := truncateUTF8(value, MaxStringLength)
	if cut {
		g.recordError(m.meta, InvalidOverflow,
			fmt.Sprintf("value length %d exceeds maximum of %d", len(value), MaxStringLength), 1)
	}
	g.RecordMetric(m.meta, metric.String(truncated))
}

// Value returns the stored value in ping.
func (m *StringMetric) Value(g *Glean, ping string) (string, bool) {
	value, ok := g.lookup(m.meta, ping).(metric.String)
	return string(value), ok
}
