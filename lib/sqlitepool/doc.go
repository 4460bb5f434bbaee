// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool is the SQLite connection pool under the metric
// store.
//
// It wraps zombiezen.com/go/sqlite with the defaults an embedded
// recorder wants: WAL journaling so readers never block the writer,
// NORMAL synchronous mode (committed data survives a process crash;
// an OS crash may lose the last transactions, which is acceptable for
// telemetry), and a busy timeout so a second handle waits for the
// write lock instead of failing immediately.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=OFF
//   - cache_size=-2048 (2 MB; metric rows are small)
//   - temp_store=MEMORY
//
// # Transactions
//
// [Pool.Write] runs a function inside an IMMEDIATE transaction on a
// borrowed connection and commits iff the function returns nil.
// [Pool.Read] runs a function inside a deferred transaction, which
// pins one WAL snapshot for the duration of the function: rows
// committed after the first read are not visible to it.
//
//	err := pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "DELETE FROM ping_metrics", nil)
//	})
//
// Callers that need finer control can still [Pool.Take] and [Pool.Put]
// connections directly. Connections are not safe for concurrent use.
package sqlitepool
