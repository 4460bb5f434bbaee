// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/glean/lib/metric"
)

// Writer operates on one lifetime's table inside an open write
// transaction. It is only valid during the WriteWithStore callback that
// received it.
type Writer struct {
	conn     *sqlite.Conn
	lifetime metric.Lifetime
	table    string
}

// Lifetime returns the lifetime whose table this transaction writes.
func (w *Writer) Lifetime() metric.Lifetime {
	return w.lifetime
}

// Get reads the value at (ping, key). Decode failures are returned as
// errors wrapping metric.ErrUnknownKind or metric.ErrMalformed.
func (w *Writer) Get(ping, key string) (metric.Metric, bool, error) {
	storageKey := StorageKey(w.lifetime, ping, key)
	stored, found, err := readRow(w.conn, w.table, storageKey)
	if err != nil || !found {
		return nil, false, err
	}
	value, err := metric.Decode(stored.value)
	if err != nil {
		return nil, false, fmt.Errorf("database: decoding %s: %w", storageKey, err)
	}
	return value, true, nil
}

// Put stores m at (ping, key), replacing the previous value. For
// Application and User lifetimes ping is added to the row's ping set.
func (w *Writer) Put(ping, key string, m metric.Metric) error {
	if err := validatePing(ping); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("database: empty metric key")
	}

	encoded, err := metric.Encode(m)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	storageKey := StorageKey(w.lifetime, ping, key)
	pings := ping
	if w.lifetime != metric.Ping {
		existing, found, err := readRow(w.conn, w.table, storageKey)
		if err != nil {
			return err
		}
		if found {
			pings = mergePings(existing.pings, ping)
		}
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, pings, value) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET pings = excluded.pings, value = excluded.value`, w.table)
	if err := sqlitex.Execute(w.conn, query, &sqlitex.ExecOptions{
		Args: []any{storageKey, pings, encoded},
	}); err != nil {
		return fmt.Errorf("database: writing %s: %w", storageKey, err)
	}
	return nil
}

// Delete removes the value at (ping, key). For Application and User
// lifetimes this removes the value for every ping it was sent in.
func (w *Writer) Delete(ping, key string) error {
	storageKey := StorageKey(w.lifetime, ping, key)
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", w.table)
	if err := sqlitex.Execute(w.conn, query, &sqlitex.ExecOptions{
		Args: []any{storageKey},
	}); err != nil {
		return fmt.Errorf("database: deleting %s: %w", storageKey, err)
	}
	return nil
}

// DeletePrefix removes every row whose storage key starts with prefix
// and returns the number removed. The prefix must be non-empty.
func (w *Writer) DeletePrefix(prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("database: empty delete prefix")
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE key >= ? AND key < ?", w.table)
	if err := sqlitex.Execute(w.conn, query, &sqlitex.ExecOptions{
		Args: []any{prefix, prefixEnd(prefix)},
	}); err != nil {
		return 0, fmt.Errorf("database: deleting prefix %q: %w", prefix, err)
	}
	return w.conn.Changes(), nil
}

// row is one stored entry before decoding.
type row struct {
	key   string
	pings string
	value []byte
}

func readRow(conn *sqlite.Conn, table, storageKey string) (row, bool, error) {
	var (
		stored row
		found  bool
	)
	query := fmt.Sprintf("SELECT key, pings, value FROM %s WHERE key = ?", table)
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{storageKey},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored = scanRow(stmt)
			found = true
			return nil
		},
	})
	if err != nil {
		return row{}, false, fmt.Errorf("database: reading %s: %w", storageKey, err)
	}
	return stored, found, nil
}

// scanRow reads the (key, pings, value) columns of the current result.
func scanRow(stmt *sqlite.Stmt) row {
	value := make([]byte, stmt.ColumnLen(2))
	stmt.ColumnBytes(2, value)
	return row{
		key:   stmt.ColumnText(0),
		pings: stmt.ColumnText(1),
		value: value,
	}
}
