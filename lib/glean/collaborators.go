// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FirstRunDetector decides whether this is the first time the
// application has run with a data directory.
type FirstRunDetector interface {
	IsFirstRun(dataPath string) (bool, error)
}

// FirstRunFunc adapts a function to FirstRunDetector.
type FirstRunFunc func(dataPath string) (bool, error)

// IsFirstRun calls f(dataPath).
func (f FirstRunFunc) IsFirstRun(dataPath string) (bool, error) {
	return f(dataPath)
}

// firstRunSentinel is the file whose creation marks the first run.
const firstRunSentinel = "first-run"

// SentinelFirstRun reports a first run when it is the one to create
// <dataPath>/first-run. Creation is exclusive, so exactly one call per
// data directory ever reports true.
type SentinelFirstRun struct{}

// IsFirstRun creates the sentinel file if it does not exist yet.
func (SentinelFirstRun) IsFirstRun(dataPath string) (bool, error) {
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return false, fmt.Errorf("glean: creating %s: %w", dataPath, err)
	}
	path := filepath.Join(dataPath, firstRunSentinel)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("glean: creating first-run sentinel: %w", err)
	}
	if err := file.Close(); err != nil {
		return false, fmt.Errorf("glean: closing first-run sentinel: %w", err)
	}
	return true, nil
}

// IDGenerator produces client identifiers.
type IDGenerator interface {
	NewID() (uuid.UUID, error)
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() (uuid.UUID, error)

// NewID calls f.
func (f IDFunc) NewID() (uuid.UUID, error) {
	return f()
}

// RandomIDs generates version 4 UUIDs.
type RandomIDs struct{}

// NewID returns a new random UUID.
func (RandomIDs) NewID() (uuid.UUID, error) {
	return uuid.NewRandom()
}
