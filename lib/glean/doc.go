// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package glean is the coordination core of the metric recording
// library: a facade that owns all mutable library state behind one
// [sync.RWMutex] and is the only path by which metric values reach the
// store.
//
// A [Glean] starts inert. [Glean.Initialize] opens the store under the
// exclusive lock, marks the instance initialized, releases the lock and
// only then records the bootstrap metrics (first_run, client_id,
// first_run_date) through the same recording path applications use.
// Bootstrap never runs with the lock held, because recording takes the
// exclusive lock itself.
//
// Before initialization every write is a silent no-op and every reader
// returns its zero value. A second Initialize returns
// [ErrAlreadyInitialized] and changes nothing.
//
// Metric types ([BooleanMetric], [CounterMetric], [StringMetric],
// [StringListMetric], [UUIDMetric], [DatetimeMetric]) record through
// [Glean.RecordMetric] and [Glean.RecordMetricWith]. They never return
// errors: invalid input is reported as an error counter in the metric's
// pings (see [ErrorType]), and storage failures are logged and counted
// in [Glean.RecordingFailures]. Recording is also dropped while upload
// is disabled.
//
// Locking: exclusive for Initialize, SetUploadEnabled, every write and
// clearing snapshots; shared for flag reads, iteration and value reads.
// Callbacks passed to IterStoreFrom, RecordWith, RecordMetricWith and
// WriteWithStore run with the lock held and must not call back into the
// same Glean.
package glean
