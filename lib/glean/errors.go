// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"errors"
	"fmt"
	"math"

	"github.com/bureau-foundation/glean/lib/metric"
)

// ErrAlreadyInitialized is returned by a second Initialize. The
// existing store and state are left as they are.
var ErrAlreadyInitialized = errors.New("glean: already initialized")

// ErrorType classifies a fault detected while recording a metric.
type ErrorType uint8

const (
	// InvalidValue: the value is out of range for the metric type.
	InvalidValue ErrorType = iota
	// InvalidLabel: a label does not match the allowed format.
	InvalidLabel
	// InvalidState: the metric was used in a state that does not
	// permit the operation.
	InvalidState
	// InvalidOverflow: the value exceeded a size limit and was
	// truncated.
	InvalidOverflow
)

// String returns the name used in error metric identifiers.
func (errorType ErrorType) String() string {
	switch errorType {
	case InvalidValue:
		return "invalid_value"
	case InvalidLabel:
		return "invalid_label"
	case InvalidState:
		return "invalid_state"
	case InvalidOverflow:
		return "invalid_overflow"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(errorType))
	}
}

// errorMetric returns the counter that accumulates errorType for the
// metric described by data. It is sent in the same pings as the metric
// and cleared with them.
func errorMetric(data metric.CommonMetricData, errorType ErrorType) metric.CommonMetricData {
	return metric.CommonMetricData{
		Category:    "glean.error",
		Name:        errorType.String() + "/" + data.Identifier(),
		SendInPings: data.SendInPings,
		Lifetime:    metric.Ping,
	}
}

// recordError increments the error counter for (data, errorType) by
// count. The lock must not be held.
func (g *Glean) recordError(data metric.CommonMetricData, errorType ErrorType, message string, count int32) {
	g.logger.Warn("metric recording error",
		"metric", data.Identifier(),
		"error_type", errorType.String(),
		"message", message,
	)
	g.RecordMetricWith(errorMetric(data, errorType), func(current metric.Metric) metric.Metric {
		existing, _ := current.(metric.Counter)
		return saturatingAdd(existing, count)
	})
}

// NumRecordedErrors returns how many errors of errorType have been
// recorded for data in ping since the ping was last cleared.
func (g *Glean) NumRecordedErrors(data metric.CommonMetricData, errorType ErrorType, ping string) int32 {
	counter, _ := g.lookup(errorMetric(data, errorType), ping).(metric.Counter)
	return int32(counter)
}

func saturatingAdd(current metric.Counter, amount int32) metric.Counter {
	if int64(current)+int64(amount) > math.MaxInt32 {
		return metric.Counter(math.MaxInt32)
	}
	return current + metric.Counter(amount)
}
