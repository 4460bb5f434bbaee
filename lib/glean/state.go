// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/glean/lib/database"
)

// state is the coordinator: the store handle and the flags. All access
// goes through Glean, which holds its lock; state itself does no
// locking and no I/O beyond opening and closing the store.
//
// Uninitialized -> initialized happens once. Shutdown releases the store
// but does not leave the initialized state, so the instance can never
// be initialized again.
type state struct {
	database      *database.Database
	uploadEnabled bool
	initialized   bool
	shutDown      bool
}

// newState returns the inert pre-initialization state.
func newState() state {
	return state{uploadEnabled: true}
}

// initialize opens the store at dataPath. Fields change only after the
// store has opened, so a failure leaves the state exactly as it was.
func (s *state) initialize(dataPath string, poolSize int, logger *slog.Logger) error {
	if s.initialized {
		return fmt.Errorf("%w (data path %s)", ErrAlreadyInitialized, s.database.Directory())
	}

	opened, err := database.Open(database.Config{
		Directory: dataPath,
		PoolSize:  poolSize,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("glean: initializing %s: %w", dataPath, err)
	}

	s.database = opened
	s.initialized = true
	return nil
}

// shutdown closes the store. Later operations behave as before
// initialization; a second shutdown does nothing.
func (s *state) shutdown() error {
	if !s.ready() {
		return nil
	}
	s.shutDown = true
	if err := s.database.Close(); err != nil {
		return fmt.Errorf("glean: shutdown: %w", err)
	}
	return nil
}

// ready reports whether the store is open for use.
func (s *state) ready() bool {
	return s.initialized && !s.shutDown
}

// canRecord reports whether metric-type recording should reach the
// store.
func (s *state) canRecord() bool {
	return s.ready() && s.uploadEnabled
}

// dataPath returns the store's data directory, or "" before
// initialization.
func (s *state) dataPath() string {
	if s.database == nil {
		return ""
	}
	return s.database.Directory()
}
