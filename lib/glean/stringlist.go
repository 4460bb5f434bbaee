// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/glean/lib/metric"
)

const (
	// MaxStringListItemLength is the longest list item stored, in bytes.
	MaxStringListItemLength = 50

	// MaxStringListLength is the most items a list holds.
	MaxStringListLength = 20
)

// StringListMetric records an ordered list of short strings.
type StringListMetric struct {
	meta metric.CommonMetricData
}

// NewStringListMetric returns a string list metric described by meta.
func NewStringListMetric(meta metric.CommonMetricData) *StringListMetric {
	return &StringListMetric{meta: meta}
}

// Meta returns the metric's identifying data.
func (m *StringListMetric) Meta() metric.CommonMetricData {
	return m.meta
}

// Add appends value to the list. An item longer than
// MaxStringListItemLength is truncated with an InvalidOverflow error.
// When the list is already full the item is dropped and an
// InvalidValue error is recorded.
func (m *StringListMetric) Add(g *Glean, value string) {
	item := m.truncateItem(g, value)

	full := false
	g.RecordMetricWith(m.meta, func(current metric.Metric) metric.Metric {
		existing, _ := current.(metric.StringList)
		if len(existing) >= MaxStringListLength {
			full = true
			return nil
		}
		return append(slices.Clone(existing), item)
	})

	// Recorded after the transform, which runs with the lock held.
	if full {
		g.recordError(m.meta, InvalidValue,
			fmt.Sprintf("list already holds the maximum of %d items", MaxStringListLength), 1)
	}
}

// Set replaces the list. More than MaxStringListLength items records an
// InvalidValue error and leaves the stored list unchanged; long items
// are truncated as in Add.
func (m *StringListMetric) Set(g *Glean, values []string) {
	if len(values) > MaxStringListLength {
		g.recordError(m.meta, InvalidValue,
			fmt.Sprintf("list of %d items exceeds maximum of %d", len(values), MaxStringListLength), 1)
		return
	}

	items := make(metric.StringList, len(values))
	for i, value := range values {
		items[i] = m.truncateItem(g, value)
	}
	g.RecordMetric(m.meta, items)
}

// Value returns a copy of the stored list in ping.
func (m *StringListMetric) Value(g *Glean, ping string) ([]string, bool) {
	value, ok := g.lookup(m.meta, ping).(metric.StringList)
	if !ok {
		return nil, false
	}
	return slices.Clone([]string(value)), true
}

func (m *StringListMetric) truncateItem(g *Glean, value string) string {
	truncated, cut := truncateUTF8(value, MaxStringListItemLength)
	if cut {
		g.recordError(m.meta, InvalidOverflow,
			fmt.Sprintf("item length %d exceeds maximum of %d", len(value), MaxStringListItemLength), 1)
	}
	return truncated
}
