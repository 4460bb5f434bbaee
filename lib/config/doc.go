// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the Glean
// recording core and its tools.
//
// Configuration is loaded from a single file specified by either the
// GLEAN_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search.
//
// The file may contain environment-specific sections (development,
// production) that override base values when [Config].Environment
// matches. Production defaults to warn-level logging.
//
// Variable expansion is performed on data_path after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// Key exports:
//
//   - [Config] -- data path, upload flag, log level, storage settings
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other packages in this module.
package config
