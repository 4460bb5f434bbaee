// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"github.com/bureau-foundation/glean/lib/metric"
)

// ClientInfoPing is the ping the bootstrap metrics are sent in.
const ClientInfoPing = "glean_client_info"

// MetricsPing carries the glean.error.io counter.
const MetricsPing = "metrics"

// coreMetrics are the metrics bootstrap records, plus the counter of
// recordings lost to storage errors.
type coreMetrics struct {
	firstRun     *BooleanMetric
	clientID     *UUIDMetric
	firstRunDate *DatetimeMetric
	ioErrors     *CounterMetric
}

func newCoreMetrics() coreMetrics {
	return coreMetrics{
		firstRun: NewBooleanMetric(metric.CommonMetricData{
			Name:        "first_run",
			SendInPings: []string{ClientInfoPing},
			Lifetime:    metric.Application,
		}),
		clientID: NewUUIDMetric(metric.CommonMetricData{
			Name:        "client_id",
			SendInPings: []string{ClientInfoPing},
			Lifetime:    metric.User,
		}),
		firstRunDate: NewDatetimeMetric(metric.CommonMetricData{
			Name:        "first_run_date",
			SendInPings: []string{ClientInfoPing},
			Lifetime:    metric.User,
		}),
		ioErrors: NewCounterMetric(metric.CommonMetricData{
			Category:    "glean.error",
			Name:        "io",
			SendInPings: []string{MetricsPing},
			Lifetime:    metric.Ping,
		}),
	}
}

// bootstrap records the core metrics through the ordinary recording
// path. The lock must not be held: every step takes it.
func (g *Glean) bootstrap(dataPath string) {
	firstRun, err := g.firstRun.IsFirstRun(dataPath)
	if err != nil {
		g.logger.Warn("first-run detection failed", "data_path", dataPath, "error", err)
	} else {
		g.core.firstRun.Set(g, firstRun)
	}

	g.core.clientID.GenerateIfMissing(g)
	g.core.firstRunDate.SetIfMissing(g)

	g.logger.Debug("bootstrap metrics recorded", "first_run", firstRun)
}

// ClientID returns the stored client identifier.
func (g *Glean) ClientID() (string, bool) {
	id, ok := g.core.clientID.Value(g, ClientInfoPing)
	if !ok {
		return "", false
	}
	return id.String(), true
}

// FirstRun reports the first_run value recorded by bootstrap.
func (g *Glean) FirstRun() (bool, bool) {
	return g.core.firstRun.Value(g, ClientInfoPing)
}
