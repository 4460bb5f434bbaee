// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// DataDir returns a path for an application data directory inside the
// test's temporary directory. The directory itself is not created, so
// code under test exercises its own directory creation.
func DataDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "glean_data")
}

// WriteFile creates a file at path with the given content, creating
// parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

var uniqueCounter atomic.Uint64

// UniqueID returns "prefix_N" with N increasing across the test binary.
// The underscore keeps results valid as metric names.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, uniqueCounter.Add(1))
}

// RequireClosed waits for ch to close (or deliver a value) within
// timeout, or fails the test.
func RequireClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration, message string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message)
	}
}
