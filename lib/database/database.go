// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"

	"github.com/gofrs/flock"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/glean/lib/codec"
	"github.com/bureau-foundation/glean/lib/metric"
	"github.com/bureau-foundation/glean/lib/sqlitepool"
)

var (
	// ErrLocked is returned by Open when another handle holds the
	// store's directory lock.
	ErrLocked = errors.New("database: store is locked by another writer")

	// ErrCallbackPanic wraps a panic recovered from a transaction
	// callback or transform. The transaction is rolled back.
	ErrCallbackPanic = errors.New("database: transaction callback panicked")
)

const (
	databaseFile = "glean.db"
	lockFile     = "glean.lock"
)

const schema = `
CREATE TABLE IF NOT EXISTS ping_metrics (
	key   TEXT PRIMARY KEY NOT NULL,
	pings TEXT NOT NULL,
	value BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS application_metrics (
	key   TEXT PRIMARY KEY NOT NULL,
	pings TEXT NOT NULL,
	value BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS user_metrics (
	key   TEXT PRIMARY KEY NOT NULL,
	pings TEXT NOT NULL,
	value BLOB NOT NULL
) WITHOUT ROWID;
`

// Config holds the parameters for opening a store.
type Config struct {
	// Directory is the application's data directory. The store lives
	// in its db/ subdirectory, which is created if absent.
	Directory string

	// PoolSize is the number of SQLite connections. Defaults to 4.
	PoolSize int

	// Logger receives skipped-row warnings and lifecycle messages.
	// Nil discards them.
	Logger *slog.Logger
}

// Database is an open store. It is safe for concurrent use, but it does
// not order concurrent writers against each other beyond what SQLite
// guarantees per transaction; the Glean facade provides that ordering.
type Database struct {
	pool      *sqlitepool.Pool
	lock      *flock.Flock
	directory string
	logger    *slog.Logger

	decodeFailures atomic.Uint64
}

// Open creates the store directory if needed, takes the directory lock
// and opens the database. On failure nothing stays held.
func Open(cfg Config) (*Database, error) {
	if cfg.Directory == "" {
		return nil, fmt.Errorf("database: Directory is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	storeDirectory := filepath.Join(cfg.Directory, "db")
	if err := os.MkdirAll(storeDirectory, 0o700); err != nil {
		return nil, fmt.Errorf("database: creating %s: %w", storeDirectory, err)
	}

	lock := flock.New(filepath.Join(storeDirectory, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("database: locking %s: %w", storeDirectory, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, storeDirectory)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(storeDirectory, databaseFile),
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("database: %w", err)
	}

	// Connections are prepared lazily; borrow one now so that an
	// unreadable file or a schema failure is reported by Open.
	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		lock.Unlock()
		return nil, fmt.Errorf("database: %w", err)
	}
	pool.Put(conn)

	logger.Info("metric store opened", "directory", cfg.Directory)

	return &Database{
		pool:      pool,
		lock:      lock,
		directory: cfg.Directory,
		logger:    logger,
	}, nil
}

// Close closes the database and releases the directory lock.
func (d *Database) Close() error {
	poolErr := d.pool.Close()
	lockErr := d.lock.Unlock()
	if poolErr != nil {
		return fmt.Errorf("database: %w", poolErr)
	}
	if lockErr != nil {
		return fmt.Errorf("database: releasing lock: %w", lockErr)
	}
	d.logger.Info("metric store closed", "directory", d.directory)
	return nil
}

// Directory returns the data directory the store was opened in.
func (d *Database) Directory() string {
	return d.directory
}

// DecodeFailures returns how many rows scans have skipped because they
// could not be decoded.
func (d *Database) DecodeFailures() uint64 {
	return d.decodeFailures.Load()
}

// Record stores m for (lifetime, ping, key), replacing any previous
// value.
func (d *Database) Record(lifetime metric.Lifetime, ping, key string, m metric.Metric) error {
	return d.WriteWithStore(lifetime, func(writer *Writer) error {
		return writer.Put(ping, key, m)
	})
}

// RecordWith replaces the value at (lifetime, ping, key) with
// transform(current) in one transaction. current is nil when nothing is
// stored, or when the stored row cannot be decoded. If transform
// returns nil the stored value is left as it is.
func (d *Database) RecordWith(lifetime metric.Lifetime, ping, key string, transform func(current metric.Metric) metric.Metric) error {
	return d.WriteWithStore(lifetime, func(writer *Writer) error {
		current, _, err := writer.Get(ping, key)
		if err != nil {
			if !IsDecodeError(err) {
				return err
			}
			storageKey := StorageKey(lifetime, ping, key)
			stored, _, readErr := readRow(writer.conn, writer.table, storageKey)
			if readErr != nil {
				return readErr
			}
			d.noteDecodeFailure(storageKey, stored.value, err)
			current = nil
		}

		next := transform(current)
		if next == nil {
			return nil
		}
		return writer.Put(ping, key, next)
	})
}

// Get returns the value stored at (lifetime, ping, key). The bool is
// false when nothing is stored, or, for Application and User
// lifetimes, when the stored value is not sent in ping.
func (d *Database) Get(lifetime metric.Lifetime, ping, key string) (metric.Metric, bool, error) {
	table, err := tableFor(lifetime)
	if err != nil {
		return nil, false, err
	}
	storageKey := StorageKey(lifetime, ping, key)

	var (
		value metric.Metric
		found bool
	)
	err = d.pool.Read(context.Background(), func(conn *sqlite.Conn) error {
		stored, ok, err := readRow(conn, table, storageKey)
		if err != nil || !ok {
			return err
		}
		if lifetime != metric.Ping && !slices.Contains(splitPings(stored.pings), ping) {
			return nil
		}
		value, err = metric.Decode(stored.value)
		if err != nil {
			return fmt.Errorf("database: decoding %s: %w", storageKey, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// WriteWithStore opens one write transaction on lifetime's table and
// passes it to fn. The transaction commits iff fn returns nil. A panic
// in fn is recovered and returned as an error wrapping
// ErrCallbackPanic.
func (d *Database) WriteWithStore(lifetime metric.Lifetime, fn func(writer *Writer) error) error {
	table, err := tableFor(lifetime)
	if err != nil {
		return err
	}

	err = d.pool.Write(context.Background(), func(conn *sqlite.Conn) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%w: %v", ErrCallbackPanic, recovered)
			}
		}()
		return fn(&Writer{conn: conn, lifetime: lifetime, table: table})
	})
	if err != nil {
		return fmt.Errorf("database: writing %s store: %w", lifetime, err)
	}
	return nil
}

// ClearPing deletes every Ping-lifetime value stored for ping and
// returns how many rows were removed.
func (d *Database) ClearPing(ping string) (int, error) {
	var removed int
	err := d.WriteWithStore(metric.Ping, func(writer *Writer) error {
		var err error
		removed, err = writer.DeletePrefix(pingPrefix(ping))
		return err
	})
	return removed, err
}

// noteDecodeFailure counts and logs a row that could not be decoded,
// with the row in CBOR diagnostic notation when it is well-formed CBOR.
func (d *Database) noteDecodeFailure(storageKey string, raw []byte, err error) {
	d.decodeFailures.Add(1)
	attributes := []any{"key", storageKey, "error", err, "size", len(raw)}
	if notation, diagnoseErr := codec.Diagnose(raw); diagnoseErr == nil {
		attributes = append(attributes, "diagnostic", notation)
	}
	d.logger.Warn("skipping undecodable metric row", attributes...)
}

// IsDecodeError reports whether err comes from a stored row that could
// not be decoded, as opposed to a storage failure.
func IsDecodeError(err error) bool {
	return errors.Is(err, metric.ErrUnknownKind) || errors.Is(err, metric.ErrMalformed)
}

func tableFor(lifetime metric.Lifetime) (string, error) {
	switch lifetime {
	case metric.Ping:
		return "ping_metrics", nil
	case metric.Application:
		return "application_metrics", nil
	case metric.User:
		return "user_metrics", nil
	default:
		return "", fmt.Errorf("database: no store for lifetime %s", lifetime)
	}
}
