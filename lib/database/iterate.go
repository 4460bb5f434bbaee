// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/glean/lib/metric"
)

// IterStoreFrom calls visit for every entry in lifetime's table whose
// storage key is >= start, in ascending byte order of the key. The scan
// runs in one read transaction. Rows that cannot be decoded are
// skipped. visit must not call back into write methods of the Glean
// facade, which holds its shared lock for the duration of the scan.
func (d *Database) IterStoreFrom(lifetime metric.Lifetime, start string, visit func(key []byte, value metric.Metric)) error {
	table, err := tableFor(lifetime)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT key, pings, value FROM %s WHERE key >= ? ORDER BY key", table)
	err = d.pool.Read(context.Background(), func(conn *sqlite.Conn) error {
		return d.scan(conn, query, []any{start}, func(stored row, value metric.Metric) {
			visit([]byte(stored.key), value)
		})
	})
	if err != nil {
		return fmt.Errorf("database: iterating %s store: %w", lifetime, err)
	}
	return nil
}

// IterPing calls visit for every entry in lifetime's table that is sent
// in ping, in key order, with the metric key (the ping prefix removed
// for Ping lifetime).
func (d *Database) IterPing(lifetime metric.Lifetime, ping string, visit func(key string, value metric.Metric)) error {
	err := d.pool.Read(context.Background(), func(conn *sqlite.Conn) error {
		return d.scanPing(conn, lifetime, ping, visit)
	})
	if err != nil {
		return fmt.Errorf("database: iterating %s store for ping %s: %w", lifetime, ping, err)
	}
	return nil
}

// scanPing is IterPing on an existing connection, so that it can also
// run inside a write transaction.
func (d *Database) scanPing(conn *sqlite.Conn, lifetime metric.Lifetime, ping string, visit func(key string, value metric.Metric)) error {
	if err := validatePing(ping); err != nil {
		return err
	}
	table, err := tableFor(lifetime)
	if err != nil {
		return err
	}

	if lifetime == metric.Ping {
		prefix := pingPrefix(ping)
		query := fmt.Sprintf("SELECT key, pings, value FROM %s WHERE key >= ? AND key < ? ORDER BY key", table)
		return d.scan(conn, query, []any{prefix, prefixEnd(prefix)}, func(stored row, value metric.Metric) {
			visit(strings.TrimPrefix(stored.key, prefix), value)
		})
	}

	query := fmt.Sprintf(
		"SELECT key, pings, value FROM %s WHERE instr(',' || pings || ',', ?) > 0 ORDER BY key", table)
	return d.scan(conn, query, []any{"," + ping + ","}, func(stored row, value metric.Metric) {
		visit(stored.key, value)
	})
}

// scan runs a (key, pings, value) query and passes each decodable row
// to visit.
func (d *Database) scan(conn *sqlite.Conn, query string, args []any, visit func(stored row, value metric.Metric)) error {
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored := scanRow(stmt)
			value, err := metric.Decode(stored.value)
			if err != nil {
				d.noteDecodeFailure(stored.key, stored.value, err)
				return nil
			}
			visit(stored, value)
			return nil
		},
	})
}
