// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [DataDir] returns a fresh application data directory that is removed
// when the test ends. [UniqueID] generates distinct metric names so
// tests sharing a store do not collide. [RequireClosed] bounds waits on
// completion channels so a deadlocked test fails instead of hanging.
//
// All helpers call t.Fatalf on failure; setup failures are not
// recoverable.
package testutil
