// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// glean-inspect prints the contents of a Glean metric store.
//
// With --ping it prints the snapshot that ping would carry: every value
// sent in it across all lifetimes, grouped by metric kind. --clear also
// removes the ping's Ping-lifetime values, as ping assembly does. With
// --lifetime it lists the raw entries of one lifetime's store in key
// order, optionally starting at --from.
//
// The store is opened directly. Bootstrap metrics are never recorded,
// and the tool holds the store's writer lock while it runs, so it fails
// when an application has the same data directory open.
//
// The data directory comes from --data-path, or from the data_path of
// the configuration file named by --config or GLEAN_CONFIG.
package main
