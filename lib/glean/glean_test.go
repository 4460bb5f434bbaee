// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/glean/lib/clock"
	"github.com/bureau-foundation/glean/lib/config"
	"github.com/bureau-foundation/glean/lib/database"
	"github.com/bureau-foundation/glean/lib/metric"
	"github.com/bureau-foundation/glean/lib/testutil"
)

var testEpoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.FixedZone("", 3600))

func newTestGlean(t *testing.T) *Glean {
	t.Helper()
	g := New(Options{Clock: clock.Fake(testEpoch)})
	if err := g.Initialize(testutil.DataDir(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() {
		if err := g.Shutdown(); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return g
}

type entry struct {
	key   string
	value metric.Metric
}

func iterate(t *testing.T, g *Glean, lifetime metric.Lifetime, start string) []entry {
	t.Helper()
	var entries []entry
	err := g.IterStoreFrom(lifetime, start, func(key []byte, value metric.Metric) {
		entries = append(entries, entry{key: string(key), value: value})
	})
	if err != nil {
		t.Fatalf("IterStoreFrom: %v", err)
	}
	return entries
}

func TestNewIsInert(t *testing.T) {
	g := New(Options{})

	if g.IsInitialized() {
		t.Error("new instance reports initialized")
	}
	if !g.IsUploadEnabled() {
		t.Error("upload should be enabled by default")
	}
	if g.DataPath() != "" {
		t.Errorf("DataPath = %q before initialization", g.DataPath())
	}

	if err := g.Record(metric.Ping, "metrics", "a", metric.Counter(1)); err != nil {
		t.Errorf("Record before initialize: %v", err)
	}
	if err := g.RecordWith(metric.Ping, "metrics", "a", func(metric.Metric) metric.Metric {
		t.Error("transform called before initialize")
		return nil
	}); err != nil {
		t.Errorf("RecordWith before initialize: %v", err)
	}
	if entries := iterate(t, g, metric.Ping, ""); len(entries) != 0 {
		t.Errorf("iteration before initialize visited %v", entries)
	}
	if err := g.WriteWithStore(metric.User, func(*database.Writer) error {
		t.Error("transaction callback called before initialize")
		return nil
	}); err != nil {
		t.Errorf("WriteWithStore before initialize: %v", err)
	}
	snapshot, err := g.Snapshot("metrics", true)
	if err != nil || len(snapshot) != 0 {
		t.Errorf("Snapshot before initialize = %v, %v", snapshot, err)
	}
	if err := g.Shutdown(); err != nil {
		t.Errorf("Shutdown of an uninitialized instance: %v", err)
	}
}

func TestRecordAndIterate(t *testing.T) {
	g := newTestGlean(t)

	if !g.IsInitialized() {
		t.Fatal("IsInitialized false after Initialize")
	}
	if err := g.Record(metric.Ping, "metrics", "counter#a", metric.Counter(1)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries := iterate(t, g, metric.Ping, "")
	if len(entries) != 1 {
		t.Fatalf("entries = %v, want one", entries)
	}
	if entries[0].key != "metrics#counter#a" || entries[0].value != metric.Counter(1) {
		t.Errorf("entry = %q %#v", entries[0].key, entries[0].value)
	}
}

func TestRecordBeforeInitializeIsDropped(t *testing.T) {
	g := New(Options{})
	if err := g.Record(metric.Ping, "metrics", "early", metric.Counter(1)); err != nil {
		t.Fatal(err)
	}
	if err := g.Initialize(testutil.DataDir(t)); err != nil {
		t.Fatal(err)
	}
	defer g.Shutdown()

	if entries := iterate(t, g, metric.Ping, ""); len(entries) != 0 {
		t.Errorf("pre-initialization record was stored: %v", entries)
	}
}

func TestSecondInitializeIsRejected(t *testing.T) {
	g := newTestGlean(t)
	original := g.DataPath()

	err := g.Initialize(testutil.DataDir(t))
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize error = %v, want ErrAlreadyInitialized", err)
	}
	if g.DataPath() != original {
		t.Errorf("DataPath changed to %q", g.DataPath())
	}
	if err := g.Record(metric.User, "metrics", "still_works", metric.Boolean(true)); err != nil {
		t.Errorf("Record after rejected Initialize: %v", err)
	}
}

func TestInitializeFailureLeavesUninitialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("not a directory"), 0o600); err != nil {
		t.Fatal(err)
	}

	g := New(Options{})
	if err := g.Initialize(path); err == nil {
		t.Fatal("Initialize should fail when the data path is a file")
	}
	if g.IsInitialized() {
		t.Error("failed Initialize left the instance initialized")
	}
	if g.DataPath() != "" {
		t.Errorf("failed Initialize set DataPath %q", g.DataPath())
	}

	if err := g.Initialize(testutil.DataDir(t)); err != nil {
		t.Fatalf("retry Initialize: %v", err)
	}
	defer g.Shutdown()
	if !g.IsInitialized() {
		t.Error("retry did not initialize")
	}
}

func TestInitializeLockedStore(t *testing.T) {
	dataPath := testutil.DataDir(t)
	first := New(Options{})
	if err := first.Initialize(dataPath); err != nil {
		t.Fatal(err)
	}
	defer first.Shutdown()

	second := New(Options{})
	err := second.Initialize(dataPath)
	if !errors.Is(err, database.ErrLocked) {
		t.Fatalf("Initialize on a held store = %v, want ErrLocked", err)
	}
	if second.IsInitialized() {
		t.Error("second instance initialized against a locked store")
	}
}

func TestUploadFlagDoesNotTouchStoredData(t *testing.T) {
	g := newTestGlean(t)

	if err := g.Record(metric.User, "metrics", "kept", metric.String("value")); err != nil {
		t.Fatal(err)
	}
	before := iterate(t, g, metric.User, "")

	g.SetUploadEnabled(false)
	if g.IsUploadEnabled() {
		t.Error("IsUploadEnabled true after disabling")
	}
	g.SetUploadEnabled(true)
	if !g.IsUploadEnabled() {
		t.Error("IsUploadEnabled false after enabling")
	}

	after := iterate(t, g, metric.User, "")
	if len(before) != len(after) {
		t.Fatalf("entries changed: before %v after %v", before, after)
	}
	for i := range before {
		if before[i].key != after[i].key {
			t.Errorf("entry %d changed: %q -> %q", i, before[i].key, after[i].key)
		}
	}
}

func TestConcurrentRecordWithLosesNoUpdates(t *testing.T) {
	g := newTestGlean(t)

	const goroutineCount = 8
	const incrementsPerGoroutine = 25

	var waitGroup sync.WaitGroup
	for range goroutineCount {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for range incrementsPerGoroutine {
				err := g.RecordWith(metric.Ping, "metrics", "total", func(current metric.Metric) metric.Metric {
					counter, _ := current.(metric.Counter)
					return counter + 1
				})
				if err != nil {
					t.Errorf("RecordWith: %v", err)
					return
				}
			}
		}()
	}

	// Readers run alongside the writers.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 20 {
			g.IterStoreFrom(metric.Ping, "", func([]byte, metric.Metric) {})
			g.IsUploadEnabled()
		}
	}()

	waitGroup.Wait()
	testutil.RequireClosed(t, done, 10*time.Second, "reader goroutine did not finish")

	entries := iterate(t, g, metric.Ping, "")
	if len(entries) != 1 {
		t.Fatalf("entries = %v", entries)
	}
	if want := metric.Counter(goroutineCount * incrementsPerGoroutine); entries[0].value != want {
		t.Errorf("total = %#v, want %#v", entries[0].value, want)
	}
}

func TestWriteWithStoreAllOrNothing(t *testing.T) {
	g := newTestGlean(t)
	failure := errors.New("failed partway")

	err := g.WriteWithStore(metric.Ping, func(writer *database.Writer) error {
		if err := writer.Put("metrics", "one", metric.Counter(1)); err != nil {
			return err
		}
		if err := writer.Put("metrics", "two", metric.Counter(2)); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("WriteWithStore = %v, want %v", err, failure)
	}
	if entries := iterate(t, g, metric.Ping, ""); len(entries) != 0 {
		t.Errorf("partial writes visible: %v", entries)
	}
}

func TestPanicInCallbackDoesNotBreakFacade(t *testing.T) {
	g := newTestGlean(t)

	err := g.RecordWith(metric.Ping, "metrics", "boom", func(metric.Metric) metric.Metric {
		panic("transform failure")
	})
	if !errors.Is(err, database.ErrCallbackPanic) {
		t.Fatalf("RecordWith = %v, want ErrCallbackPanic", err)
	}

	// The lock was released and the store is still writable.
	if err := g.Record(metric.Ping, "metrics", "after", metric.Counter(1)); err != nil {
		t.Fatalf("Record after panic: %v", err)
	}
	if entries := iterate(t, g, metric.Ping, ""); len(entries) != 1 || entries[0].key != "metrics#after" {
		t.Errorf("entries = %v", entries)
	}
}

func TestIterationStartKey(t *testing.T) {
	g := newTestGlean(t)

	for _, key := range []string{"b", "z", "m", "a", "n"} {
		if err := g.Record(metric.Ping, "ping", key, metric.Boolean(true)); err != nil {
			t.Fatal(err)
		}
	}

	var all []string
	for _, entry := range iterate(t, g, metric.Ping, "") {
		all = append(all, entry.key)
	}
	if !slices.IsSorted(all) {
		t.Errorf("keys not ordered: %v", all)
	}

	for _, entry := range iterate(t, g, metric.Ping, "ping#m") {
		if entry.key < "ping#m" {
			t.Errorf("key %q is below the start key", entry.key)
		}
	}
}

func TestBootstrap(t *testing.T) {
	dataPath := testutil.DataDir(t)
	fakeClock := clock.Fake(testEpoch)

	first := New(Options{Clock: fakeClock})
	if err := first.Initialize(dataPath); err != nil {
		t.Fatal(err)
	}
	firstRun, ok := first.FirstRun()
	if !ok || !firstRun {
		t.Errorf("first run = %v (stored %v), want true", firstRun, ok)
	}
	clientID, ok := first.ClientID()
	if !ok {
		t.Fatal("client_id not generated")
	}
	runDate, ok := first.core.firstRunDate.Value(first, ClientInfoPing)
	if !ok || !runDate.Equal(testEpoch) {
		t.Errorf("first_run_date = %v (stored %v), want %v", runDate, ok, testEpoch)
	}
	if err := first.Shutdown(); err != nil {
		t.Fatal(err)
	}

	fakeClock.Advance(48 * time.Hour)
	second := New(Options{Clock: fakeClock})
	if err := second.Initialize(dataPath); err != nil {
		t.Fatal(err)
	}
	defer second.Shutdown()

	firstRun, ok = second.FirstRun()
	if !ok || firstRun {
		t.Errorf("second run first_run = %v (stored %v), want false", firstRun, ok)
	}
	secondID, _ := second.ClientID()
	if secondID != clientID {
		t.Errorf("client_id changed across runs: %s -> %s", clientID, secondID)
	}
	runDate, _ = second.core.firstRunDate.Value(second, ClientInfoPing)
	if !runDate.Equal(testEpoch) {
		t.Errorf("first_run_date overwritten: %v", runDate)
	}
}

func TestBootstrapUsesCollaborators(t *testing.T) {
	fixedID := uuid.MustParse("12345678-9abc-4def-8123-456789abcdef")
	detectorCalls := 0

	g := New(Options{
		FirstRun: FirstRunFunc(func(dataPath string) (bool, error) {
			detectorCalls++
			return false, errors.New("detector unavailable")
		}),
		IDs: IDFunc(func() (uuid.UUID, error) { return fixedID, nil }),
	})
	if err := g.Initialize(testutil.DataDir(t)); err != nil {
		t.Fatal(err)
	}
	defer g.Shutdown()

	if detectorCalls != 1 {
		t.Errorf("detector called %d times, want 1", detectorCalls)
	}
	if _, ok := g.FirstRun(); ok {
		t.Error("first_run recorded despite detector failure")
	}
	clientID, ok := g.ClientID()
	if !ok || clientID != "12345678-9abc-4def-8123-456789abcdef" {
		t.Errorf("client_id = %q (stored %v)", clientID, ok)
	}
}

func TestIDGeneratorFailureIsCounted(t *testing.T) {
	g := New(Options{
		IDs: IDFunc(func() (uuid.UUID, error) { return uuid.UUID{}, errors.New("no entropy") }),
	})
	if err := g.Initialize(testutil.DataDir(t)); err != nil {
		t.Fatal(err)
	}
	defer g.Shutdown()

	if _, ok := g.ClientID(); ok {
		t.Error("client_id stored despite generator failure")
	}
	if g.RecordingFailures() != 1 {
		t.Errorf("RecordingFailures = %d, want 1", g.RecordingFailures())
	}
}

func TestInitializeWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DataPath = testutil.DataDir(t)
	cfg.UploadEnabled = false
	cfg.Storage.PoolSize = 2

	g := New(Options{})
	if err := g.InitializeWithConfig(cfg); err != nil {
		t.Fatalf("InitializeWithConfig: %v", err)
	}
	defer g.Shutdown()

	if g.IsUploadEnabled() {
		t.Error("upload flag not taken from config")
	}
	if g.DataPath() != cfg.DataPath {
		t.Errorf("DataPath = %q, want %q", g.DataPath(), cfg.DataPath)
	}
	// Bootstrap records through the metric path, which upload gates.
	if _, ok := g.ClientID(); ok {
		t.Error("client_id recorded while upload is disabled")
	}
}

func TestInitializeWithInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DataPath = ""

	g := New(Options{})
	if err := g.InitializeWithConfig(cfg); err == nil {
		t.Fatal("InitializeWithConfig accepted an empty data path")
	}
	if g.IsInitialized() {
		t.Error("invalid config initialized the instance")
	}
}

func TestShutdownIsTerminal(t *testing.T) {
	dataPath := testutil.DataDir(t)
	g := New(Options{})
	if err := g.Initialize(dataPath); err != nil {
		t.Fatal(err)
	}
	if err := g.Record(metric.User, "metrics", "persisted", metric.Counter(7)); err != nil {
		t.Fatal(err)
	}
	if err := g.Shutdown(); err != nil {
		t.Fatal(err)
	}

	if !g.IsInitialized() {
		t.Error("IsInitialized false after Shutdown")
	}
	if g.DataPath() != dataPath {
		t.Errorf("DataPath after Shutdown = %q, want %q", g.DataPath(), dataPath)
	}
	if err := g.Record(metric.User, "metrics", "dropped", metric.Counter(1)); err != nil {
		t.Errorf("Record after Shutdown: %v", err)
	}
	if entries := iterate(t, g, metric.User, ""); len(entries) != 0 {
		t.Errorf("iteration after Shutdown visited %v", entries)
	}
	if err := g.Initialize(dataPath); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("Initialize after Shutdown error = %v, want ErrAlreadyInitialized", err)
	}
	if err := g.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}

	// The store lock was released, so a fresh instance can open it.
	reopened := New(Options{})
	if err := reopened.Initialize(dataPath); err != nil {
		t.Fatalf("Initialize of a new instance: %v", err)
	}
	defer reopened.Shutdown()

	var keys []string
	for _, entry := range iterate(t, reopened, metric.User, "") {
		keys = append(keys, entry.key)
	}
	if !slices.Contains(keys, "persisted") || slices.Contains(keys, "dropped") {
		t.Errorf("user keys = %v", keys)
	}
}

func TestRecordRejectsNegativeCounter(t *testing.T) {
	g := newTestGlean(t)

	err := g.Record(metric.Ping, "metrics", "negative", metric.Counter(-1))
	if !errors.Is(err, metric.ErrUnencodable) {
		t.Fatalf("Record error = %v, want ErrUnencodable", err)
	}
	if entries := iterate(t, g, metric.Ping, ""); len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}

func TestStorageFailureCountsIOError(t *testing.T) {
	g := newTestGlean(t)

	broken := NewBooleanMetric(metric.CommonMetricData{
		Category:    "browser",
		Name:        "broken",
		SendInPings: []string{"bad#ping"},
		Lifetime:    metric.Ping,
	})
	broken.Set(g, true)

	if g.RecordingFailures() != 1 {
		t.Errorf("RecordingFailures = %d, want 1", g.RecordingFailures())
	}
	count, ok := g.core.ioErrors.Value(g, MetricsPing)
	if !ok || count != 1 {
		t.Errorf("glean.error.io = %d (present %v), want 1", count, ok)
	}
}

func TestSnapshotClearsPingLifetime(t *testing.T) {
	g := newTestGlean(t)

	counter := NewCounterMetric(metric.CommonMetricData{
		Category:    "browser",
		Name:        "clicks",
		SendInPings: []string{"metrics"},
		Lifetime:    metric.Ping,
	})
	counter.Add(g, 3)

	snapshot, err := g.Snapshot("metrics", true)
	if err != nil {
		t.Fatal(err)
	}
	if snapshot["counter"]["browser.clicks"] != int32(3) {
		t.Errorf("snapshot = %v", snapshot)
	}
	if _, ok := counter.Value(g, "metrics"); ok {
		t.Error("counter survived a clearing snapshot")
	}

	client, err := g.Snapshot(ClientInfoPing, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := client["uuid"]["client_id"]; !ok {
		t.Errorf("client info snapshot = %v, want client_id", client)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default returned different instances")
	}
}

func TestSentinelFirstRun(t *testing.T) {
	dataPath := testutil.DataDir(t)
	detector := SentinelFirstRun{}

	first, err := detector.IsFirstRun(dataPath)
	if err != nil || !first {
		t.Fatalf("first call = %v, %v; want true", first, err)
	}
	again, err := detector.IsFirstRun(dataPath)
	if err != nil || again {
		t.Fatalf("second call = %v, %v; want false", again, err)
	}
}
