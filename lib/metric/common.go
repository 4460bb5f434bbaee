// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metric

// CommonMetricData identifies a metric and describes where its value
// goes. It is owned by the metric type that references it and treated
// as immutable once constructed.
type CommonMetricData struct {
	// Category groups related metrics ("browser.engagement"). May be
	// empty for top-level metrics.
	Category string

	// Name is the metric's name within its category.
	Name string

	// SendInPings lists the pings this metric's value is reported
	// in. A value is stored once per ping for Ping lifetime and once
	// overall (tagged with these pings) for the other lifetimes.
	SendInPings []string

	// Lifetime controls retention.
	Lifetime Lifetime

	// Disabled metrics accept calls but never record anything.
	Disabled bool
}

// Identifier returns "category.name", or just the name when the
// category is empty. This is the key the metric is stored under.
func (data CommonMetricData) Identifier() string {
	if data.Category == "" {
		return data.Name
	}
	return data.Category + "." + data.Name
}
