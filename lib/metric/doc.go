// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metric defines the recorded unit the coordinator stores and
// the metadata that identifies it.
//
// A [Metric] is one of a closed set of variants ([Boolean], [Counter],
// [String], [StringList], [UUID], [Datetime]). The storage layer never
// looks inside a Metric: it calls [Encode] before writing and [Decode]
// after reading, and treats the bytes in between as an indivisible
// unit.
//
// # Wire format
//
// An encoded metric is a two-entry CBOR map with integer keys:
//
//	{1: kind, 2: payload}
//
// Kind values are persisted and must never be renumbered. A row whose
// kind is unknown to this release decodes to an error wrapping
// [ErrUnknownKind], which lets readers skip it instead of failing the
// whole scan.
//
// # Lifetimes
//
// [CommonMetricData] names a metric and the [Lifetime] that governs how
// long its value is kept: until the next send of its ping, for the
// life of the application process, or for the life of the user
// profile.
package metric
