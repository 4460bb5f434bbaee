// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/glean/lib/metric"
)

// pingSeparator joins a ping name and a metric key in Ping-lifetime
// storage keys.
const pingSeparator = "#"

// StorageKey returns the key a value is stored under: "ping#key" for
// Ping lifetime and key alone for the other lifetimes.
func StorageKey(lifetime metric.Lifetime, ping, key string) string {
	if lifetime == metric.Ping {
		return ping + pingSeparator + key
	}
	return key
}

// pingPrefix returns the storage-key prefix of every Ping-lifetime
// value recorded for ping.
func pingPrefix(ping string) string {
	return ping + pingSeparator
}

// prefixEnd returns the smallest string greater than every string with
// the given prefix, for use as an exclusive range bound. Prefixes here
// always end in pingSeparator, so incrementing the last byte cannot
// overflow.
func prefixEnd(prefix string) string {
	bound := []byte(prefix)
	bound[len(bound)-1]++
	return string(bound)
}

// validatePing rejects ping names that would corrupt a storage key or a
// row's ping set.
func validatePing(ping string) error {
	if ping == "" {
		return fmt.Errorf("database: empty ping name")
	}
	if strings.ContainsAny(ping, pingSeparator+",") {
		return fmt.Errorf("database: ping name %q contains a reserved character", ping)
	}
	return nil
}

// mergePings adds ping to a comma-separated ping set, keeping it
// sorted and free of duplicates.
func mergePings(set, ping string) string {
	pings := splitPings(set)
	if slices.Contains(pings, ping) {
		return set
	}
	pings = append(pings, ping)
	slices.Sort(pings)
	return strings.Join(pings, ",")
}

func splitPings(set string) []string {
	if set == "" {
		return nil
	}
	return strings.Split(set, ",")
}
