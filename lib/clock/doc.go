// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable source of the current time.
//
// Code that stamps metrics with wall-clock time (datetime metrics, the
// first-run date recorded during bootstrap) takes a [Clock] instead of
// calling time.Now directly. Production code uses [Real]; tests use
// [Fake], whose time moves only when the test says so:
//
//	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	instance := glean.New(glean.Options{Clock: fakeClock})
//	fakeClock.Advance(24 * time.Hour)
package clock
