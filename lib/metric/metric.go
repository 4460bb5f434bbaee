// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the concrete variant of an encoded Metric. Kind
// values are stored in every row and must never be renumbered.
type Kind uint8

const (
	KindBoolean    Kind = 1
	KindCounter    Kind = 2
	KindString     Kind = 3
	KindStringList Kind = 4
	KindUUID       Kind = 5
	KindDatetime   Kind = 6
)

// String returns the section name used for the kind in snapshots.
func (kind Kind) String() string {
	switch kind {
	case KindBoolean:
		return "boolean"
	case KindCounter:
		return "counter"
	case KindString:
		return "string"
	case KindStringList:
		return "string_list"
	case KindUUID:
		return "uuid"
	case KindDatetime:
		return "datetime"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kind))
	}
}

// Metric is a recorded value. Implementations are the variant types in
// this package; the set is closed so that every stored row can be
// decoded by [Decode].
type Metric interface {
	// Kind returns the variant tag written alongside the payload.
	Kind() Kind

	// JSONValue returns the value in the form it takes in a JSON
	// snapshot.
	JSONValue() any
}

// Boolean is a true/false flag.
type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }
func (b Boolean) JSONValue() any { return bool(b) }

// Counter is a non-negative running total.
type Counter int32

func (Counter) Kind() Kind { return KindCounter }
func (c Counter) JSONValue() any { return int32(c) }

// String is a short text value.
type String string

func (String) Kind() Kind { return KindString }
func (s String) JSONValue() any { return string(s) }

// StringList is an ordered list of short text values.
type StringList []string

func (StringList) Kind() Kind { return KindStringList }

func (list StringList) JSONValue() any {
	values := make([]string, len(list))
	copy(values, list)
	return values
}

// UUID is a 128-bit identifier, rendered in canonical hyphenated form.
type UUID uuid.UUID

func (UUID) Kind() Kind { return KindUUID }
func (u UUID) JSONValue() any { return uuid.UUID(u).String() }

// String returns the canonical hyphenated form.
func (u UUID) String() string { return uuid.UUID(u).String() }

// Datetime is a point in time together with the UTC offset it was
// recorded in.
type Datetime time.Time

func (Datetime) Kind() Kind { return KindDatetime }

func (d Datetime) JSONValue() any {
	return time.Time(d).Format(time.RFC3339Nano)
}

// Equal reports whether d and other are the same instant with the same
// offset.
func (d Datetime) Equal(other Datetime) bool {
	_, offset := time.Time(d).Zone()
	_, otherOffset := time.Time(other).Zone()
	return time.Time(d).Equal(time.Time(other)) && offset == otherOffset
}
