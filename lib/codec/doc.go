// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration shared by every
// package that persists or emits metric data.
//
// Stored metric values are CBOR. The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2), so the same metric always produces the same
// bytes: a value written by one release can be compared byte-for-byte
// with a value written by another, and snapshot output is stable across
// runs.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are only ever stored use `cbor` struct tags with integer
// keys (`cbor:"1,keyasint"`) to keep rows small. Types that are also
// printed as JSON by the inspection tool use `json` tags, which the CBOR
// library reads as a fallback.
package codec
