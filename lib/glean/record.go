// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"github.com/bureau-foundation/glean/lib/database"
	"github.com/bureau-foundation/glean/lib/metric"
)

// RecordMetric stores m for every ping in data.SendInPings, in one
// transaction. It is dropped when the metric is disabled, the instance
// is not initialized or upload is disabled. Storage failures are logged
// and counted, never returned.
func (g *Glean) RecordMetric(data metric.CommonMetricData, m metric.Metric) {
	g.writeMetric(data, func(writer *database.Writer) error {
		for _, ping := range data.SendInPings {
			if err := writer.Put(ping, data.Identifier(), m); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordMetricWith applies transform to the metric's current value and
// stores the result, under the same conditions as RecordMetric. For
// Ping lifetime each ping holds its own value and transform runs once
// per ping; for the other lifetimes the value is shared across pings
// and transform runs once. A nil result leaves the value unchanged.
func (g *Glean) RecordMetricWith(data metric.CommonMetricData, transform func(current metric.Metric) metric.Metric) {
	key := data.Identifier()

	g.writeMetric(data, func(writer *database.Writer) error {
		if writer.Lifetime() == metric.Ping {
			for _, ping := range data.SendInPings {
				current, err := currentValue(writer, ping, key)
				if err != nil {
					return err
				}
				next := transform(current)
				if next == nil {
					continue
				}
				if err := writer.Put(ping, key, next); err != nil {
					return err
				}
			}
			return nil
		}

		if len(data.SendInPings) == 0 {
			return nil
		}
		current, err := currentValue(writer, data.SendInPings[0], key)
		if err != nil {
			return err
		}
		next := transform(current)
		if next == nil {
			return nil
		}
		for _, ping := range data.SendInPings {
			if err := writer.Put(ping, key, next); err != nil {
				return err
			}
		}
		return nil
	})
}

// currentValue reads the value a transform starts from. A row that
// cannot be decoded counts as absent so that recording can replace it.
func currentValue(writer *database.Writer, ping, key string) (metric.Metric, error) {
	current, _, err := writer.Get(ping, key)
	if err != nil {
		if database.IsDecodeError(err) {
			return nil, nil
		}
		return nil, err
	}
	return current, nil
}

// writeMetric runs fn in one write transaction on the metric's
// lifetime. A storage failure is counted in RecordingFailures and in
// the glean.error.io counter, except when the failing write is that
// counter.
func (g *Glean) writeMetric(data metric.CommonMetricData, fn func(writer *database.Writer) error) {
	if data.Disabled {
		return
	}
	err := g.writeLocked(data, fn)
	if err == nil {
		return
	}

	g.recordingFailures.Add(1)
	g.logger.Warn("metric recording failed",
		"metric", data.Identifier(),
		"lifetime", data.Lifetime.String(),
		"error", err,
	)
	if data.Identifier() != g.core.ioErrors.Meta().Identifier() {
		g.core.ioErrors.Add(g, 1)
	}
}

func (g *Glean) writeLocked(data metric.CommonMetricData, fn func(writer *database.Writer) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.state.canRecord() {
		g.logger.Debug("metric recording dropped",
			"metric", data.Identifier(),
			"ready", g.state.ready(),
			"upload_enabled", g.state.uploadEnabled,
		)
		return nil
	}
	return g.state.database.WriteWithStore(data.Lifetime, fn)
}

// lookup returns the stored value of the metric in ping, or nil if
// there is none or it cannot be read.
func (g *Glean) lookup(data metric.CommonMetricData, ping string) metric.Metric {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.state.ready() {
		return nil
	}
	value, found, err := g.state.database.Get(data.Lifetime, ping, data.Identifier())
	if err != nil {
		g.logger.Warn("metric read failed", "metric", data.Identifier(), "ping", ping, "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return value
}
