// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/glean/lib/clock"
	"github.com/bureau-foundation/glean/lib/config"
	"github.com/bureau-foundation/glean/lib/database"
	"github.com/bureau-foundation/glean/lib/metric"
)

// Options configures a Glean. Zero values select the defaults.
type Options struct {
	// Logger receives recording diagnostics. Nil discards them.
	Logger *slog.Logger

	// Clock supplies the time for datetime metrics. Defaults to the
	// real clock.
	Clock clock.Clock

	// FirstRun decides the first_run bootstrap metric. Defaults to
	// SentinelFirstRun.
	FirstRun FirstRunDetector

	// IDs generates the client identifier. Defaults to RandomIDs.
	IDs IDGenerator

	// PoolSize is the store's connection count. Zero uses the store
	// default.
	PoolSize int
}

// Glean is the synchronized facade over the coordinator state. The
// zero value is not usable; construct with New or use Default.
type Glean struct {
	mu    sync.RWMutex
	state state

	logger   *slog.Logger
	clock    clock.Clock
	firstRun FirstRunDetector
	ids      IDGenerator
	poolSize int
	core     coreMetrics

	recordingFailures atomic.Uint64
}

// New returns an uninitialized Glean. It performs no I/O.
func New(options Options) *Glean {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	firstRun := options.FirstRun
	if firstRun == nil {
		firstRun = SentinelFirstRun{}
	}
	ids := options.IDs
	if ids == nil {
		ids = RandomIDs{}
	}

	return &Glean{
		state:    newState(),
		logger:   logger,
		clock:    clk,
		firstRun: firstRun,
		ids:      ids,
		poolSize: options.PoolSize,
		core:     newCoreMetrics(),
	}
}

var (
	defaultOnce  sync.Once
	defaultGlean *Glean
)

// Default returns the process-wide Glean, built with default Options on
// first use. Libraries that record metrics without being handed a Glean
// use this instance.
func Default() *Glean {
	defaultOnce.Do(func() {
		defaultGlean = New(Options{})
	})
	return defaultGlean
}

// Initialize opens the store rooted at dataPath, creating it if absent,
// and then records the bootstrap metrics. On error the instance stays
// uninitialized and Initialize may be retried.
func (g *Glean) Initialize(dataPath string) error {
	if err := g.open(dataPath, g.poolSize, nil); err != nil {
		return err
	}
	g.bootstrap(dataPath)
	return nil
}

// InitializeWithConfig validates cfg and initializes from its data
// path, storage pool size and initial upload flag.
func (g *Glean) InitializeWithConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("glean: invalid configuration: %w", err)
	}
	uploadEnabled := cfg.UploadEnabled
	if err := g.open(cfg.DataPath, cfg.Storage.PoolSize, &uploadEnabled); err != nil {
		return err
	}
	g.bootstrap(cfg.DataPath)
	return nil
}

// open is the exclusive phase of initialization.
func (g *Glean) open(dataPath string, poolSize int, uploadEnabled *bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.state.initialize(dataPath, poolSize, g.logger); err != nil {
		return err
	}
	if uploadEnabled != nil {
		g.state.uploadEnabled = *uploadEnabled
	}
	g.logger.Info("glean initialized",
		"data_path", dataPath,
		"upload_enabled", g.state.uploadEnabled,
	)
	return nil
}

// IsInitialized reports whether Initialize has completed its exclusive
// phase. It stays true after Shutdown.
func (g *Glean) IsInitialized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.initialized
}

// SetUploadEnabled sets the upload flag. While it is false metric types
// record nothing. Already stored values are not touched.
func (g *Glean) SetUploadEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.uploadEnabled != enabled {
		g.logger.Info("upload flag changed", "upload_enabled", enabled)
	}
	g.state.uploadEnabled = enabled
}

// IsUploadEnabled returns the upload flag. It is true until
// SetUploadEnabled(false).
func (g *Glean) IsUploadEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.uploadEnabled
}

// DataPath returns the data directory, or "" before initialization.
func (g *Glean) DataPath() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.dataPath()
}

// RecordingFailures returns how many fire-and-forget recordings were
// lost to storage errors.
func (g *Glean) RecordingFailures() uint64 {
	return g.recordingFailures.Load()
}

// Record stores m at (lifetime, ping, key), overwriting any previous
// value. Before initialization it does nothing.
func (g *Glean) Record(lifetime metric.Lifetime, ping, key string, m metric.Metric) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.ready() {
		g.logger.Debug("record before initialize dropped", "key", key)
		return nil
	}
	return g.state.database.Record(lifetime, ping, key, m)
}

// RecordWith replaces the value at (lifetime, ping, key) with
// transform(current), where current is nil if nothing is stored. The
// read and the write happen under the exclusive lock in one store
// transaction. A nil result leaves the value unchanged.
func (g *Glean) RecordWith(lifetime metric.Lifetime, ping, key string, transform func(current metric.Metric) metric.Metric) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.ready() {
		g.logger.Debug("record before initialize dropped", "key", key)
		return nil
	}
	return g.state.database.RecordWith(lifetime, ping, key, transform)
}

// IterStoreFrom calls visit for every entry of lifetime with storage
// key >= start, in key order, from one consistent snapshot. Before
// initialization it visits nothing.
func (g *Glean) IterStoreFrom(lifetime metric.Lifetime, start string, visit func(key []byte, value metric.Metric)) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.state.ready() {
		return nil
	}
	return g.state.database.IterStoreFrom(lifetime, start, visit)
}

// WriteWithStore runs fn inside one write transaction on lifetime's
// store. Nothing fn wrote is kept unless it returns nil. Before
// initialization fn is not called.
func (g *Glean) WriteWithStore(lifetime metric.Lifetime, fn func(writer *database.Writer) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.ready() {
		return nil
	}
	return g.state.database.WriteWithStore(lifetime, fn)
}

// Snapshot returns every value sent in ping. With clear, the ping's
// Ping-lifetime values are removed in the same transaction. Before
// initialization the snapshot is empty.
func (g *Glean) Snapshot(ping string, clear bool) (database.Snapshot, error) {
	if clear {
		g.mu.Lock()
		defer g.mu.Unlock()
	} else {
		g.mu.RLock()
		defer g.mu.RUnlock()
	}
	if !g.state.ready() {
		return database.Snapshot{}, nil
	}
	return g.state.database.Snapshot(ping, clear)
}

// Shutdown closes the store. The instance stays initialized, so later
// records and reads do nothing and a later Initialize fails with
// ErrAlreadyInitialized. A second Shutdown does nothing.
func (g *Glean) Shutdown() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	wasReady := g.state.ready()
	if err := g.state.shutdown(); err != nil {
		return err
	}
	if wasReady {
		g.logger.Info("glean shut down", "data_path", g.state.dataPath())
	}
	return nil
}
