// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"fmt"

	"github.com/bureau-foundation/glean/lib/metric"
)

// Snapshot is the content of one ping: metric kind name, then metric
// identifier, then the value in JSON form.
//
//	{"counter": {"browser.clicks": 3}, "uuid": {"client_id": "..."}}
type Snapshot map[string]map[string]any

func (snapshot Snapshot) add(key string, value metric.Metric) {
	section := value.Kind().String()
	entries, ok := snapshot[section]
	if !ok {
		entries = make(map[string]any)
		snapshot[section] = entries
	}
	entries[key] = value.JSONValue()
}

// Snapshot collects every value sent in ping across all lifetimes. When
// clear is true the ping's Ping-lifetime values are deleted in the same
// transaction that read them, so a value recorded concurrently lands
// either in this snapshot or in the next one, never in neither.
func (d *Database) Snapshot(ping string, clear bool) (Snapshot, error) {
	snapshot := make(Snapshot)

	for _, lifetime := range []metric.Lifetime{metric.Application, metric.User} {
		if err := d.IterPing(lifetime, ping, snapshot.add); err != nil {
			return nil, err
		}
	}

	if !clear {
		if err := d.IterPing(metric.Ping, ping, snapshot.add); err != nil {
			return nil, err
		}
		return snapshot, nil
	}

	err := d.WriteWithStore(metric.Ping, func(writer *Writer) error {
		if err := d.scanPing(writer.conn, metric.Ping, ping, snapshot.add); err != nil {
			return err
		}
		_, err := writer.DeletePrefix(pingPrefix(ping))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("database: snapshot of ping %s: %w", ping, err)
	}

	d.logger.Debug("ping store cleared", "ping", ping)
	return snapshot, nil
}
