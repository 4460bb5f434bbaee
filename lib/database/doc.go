// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package database is the lifetime-scoped store under the recorder.
//
// Each [metric.Lifetime] maps to its own table in one SQLite database
// (<directory>/db/glean.db): ping_metrics, application_metrics and
// user_metrics. A row holds the storage key, the comma-separated set
// of ping names the value is sent in, and the encoded metric.
//
// # Storage keys
//
// Ping-lifetime values are stored once per ping, under "ping#key".
// Application and User values are stored once, under the bare key, and
// the row's ping set grows as the value is recorded for more pings.
// See [StorageKey].
//
// # Transactions
//
// Every write ([Database.Record], [Database.RecordWith],
// [Database.WriteWithStore]) runs in exactly one IMMEDIATE
// transaction, and every scan ([Database.IterStoreFrom],
// [Database.IterPing]) in exactly one read transaction, so a scan sees
// one consistent snapshot. A callback that fails or panics rolls its
// transaction back; nothing it wrote is visible afterward.
//
// # Single writer
//
// Open takes an exclusive advisory lock on <directory>/db/glean.lock
// and holds it until Close. A second Open of the same directory, from
// this process or another, fails with [ErrLocked].
//
// # Format drift
//
// Rows that fail to decode (written by a newer release, or damaged) are
// skipped during scans, counted in [Database.DecodeFailures], and
// logged. They are never fatal to a scan.
package database
