// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"github.com/google/uuid"

	"github.com/bureau-foundation/glean/lib/metric"
)

// UUIDMetric records a 128-bit identifier.
type UUIDMetric struct {
	meta metric.CommonMetricData
}

// NewUUIDMetric returns a UUID metric described by meta.
func NewUUIDMetric(meta metric.CommonMetricData) *UUIDMetric {
	return &UUIDMetric{meta: meta}
}

// Meta returns the metric's identifying data.
func (m *UUIDMetric) Meta() metric.CommonMetricData {
	return m.meta
}

// Set records value.
func (m *UUIDMetric) Set(g *Glean, value uuid.UUID) {
	g.RecordMetric(m.meta, metric.UUID(value))
}

// GenerateIfMissing stores a new identifier from the Glean's
// IDGenerator unless one is already stored. The check and the write
// are one atomic step.
func (m *UUIDMetric) GenerateIfMissing(g *Glean) {
	generated, err := g.ids.NewID()
	if err != nil {
		g.recordingFailures.Add(1)
		g.logger.Warn("generating identifier failed", "metric", m.meta.Identifier(), "error", err)
		return
	}
	g.RecordMetricWith(m.meta, func(current metric.Metric) metric.Metric {
		if _, ok := current.(metric.UUID); ok {
			return nil
		}
		return metric.UUID(generated)
	})
}

// Value returns the stored identifier in ping.
func (m *UUIDMetric) Value(g *Glean, ping string) (uuid.UUID, bool) {
	value, ok := g.lookup(m.meta, ping).(metric.UUID)
	return uuid.UUID(value), ok
}
