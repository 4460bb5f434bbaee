// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/glean/lib/codec"
)

var (
	// ErrUnknownKind is returned by Decode for a row whose kind tag
	// this release does not define.
	ErrUnknownKind = errors.New("metric: unknown kind")

	// ErrMalformed is returned by Decode for a row whose envelope or
	// payload cannot be read as its declared kind.
	ErrMalformed = errors.New("metric: malformed value")

	// ErrUnencodable is returned by Encode for a value its kind cannot
	// store, such as a negative Counter.
	ErrUnencodable = errors.New("metric: value cannot be stored")
)

type envelope struct {
	Kind    Kind             `cbor:"1,keyasint"`
	Payload codec.RawMessage `cbor:"2,keyasint"`
}

// datetimePayload splits the instant into seconds and nanoseconds so
// that every year time.Time represents survives the round trip.
type datetimePayload struct {
	Seconds       int64 `cbor:"1,keyasint"`
	Nanoseconds   int32 `cbor:"2,keyasint"`
	OffsetSeconds int32 `cbor:"3,keyasint"`
}

// Encode serializes m into its stored form.
func Encode(m Metric) ([]byte, error) {
	var payload any
	switch value := m.(type) {
	case Boolean:
		payload = bool(value)
	case Counter:
		if value < 0 {
			return nil, fmt.Errorf("%w: negative counter %d", ErrUnencodable, int32(value))
		}
		payload = int32(value)
	case String:
		payload = string(value)
	case StringList:
		list := []string(value)
		if list == nil {
			list = []string{}
		}
		payload = list
	case UUID:
		payload = value[:]
	case Datetime:
		instant := time.Time(value)
		_, offset := instant.Zone()
		payload = datetimePayload{
			Seconds:       instant.Unix(),
			Nanoseconds:   int32(instant.Nanosecond()),
			OffsetSeconds: int32(offset),
		}
	case nil:
		return nil, fmt.Errorf("metric: cannot encode nil metric")
	default:
		return nil, fmt.Errorf("metric: cannot encode %T", m)
	}

	encodedPayload, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("metric: encoding %s payload: %w", m.Kind(), err)
	}
	data, err := codec.Marshal(envelope{Kind: m.Kind(), Payload: encodedPayload})
	if err != nil {
		return nil, fmt.Errorf("metric: encoding %s envelope: %w", m.Kind(), err)
	}
	return data, nil
}

// Decode parses a stored value. The returned error wraps
// ErrUnknownKind or ErrMalformed.
func Decode(data []byte) (Metric, error) {
	var stored envelope
	if err := codec.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}
	if isNullPayload(stored.Payload) {
		return nil, fmt.Errorf("%w: %s envelope has no payload", ErrMalformed, stored.Kind)
	}

	switch stored.Kind {
	case KindBoolean:
		var value bool
		if err := decodePayload(stored, &value); err != nil {
			return nil, err
		}
		return Boolean(value), nil

	case KindCounter:
		var value int64
		if err := decodePayload(stored, &value); err != nil {
			return nil, err
		}
		if value < 0 || value > math.MaxInt32 {
			return nil, fmt.Errorf("%w: counter value %d out of range", ErrMalformed, value)
		}
		return Counter(value), nil

	case KindString:
		var value string
		if err := decodePayload(stored, &value); err != nil {
			return nil, err
		}
		return String(value), nil

	case KindStringList:
		var value []string
		if err := decodePayload(stored, &value); err != nil {
			return nil, err
		}
		if value == nil {
			value = []string{}
		}
		return StringList(value), nil

	case KindUUID:
		var value []byte
		if err := decodePayload(stored, &value); err != nil {
			return nil, err
		}
		parsed, err := uuid.FromBytes(value)
		if err != nil {
			return nil, fmt.Errorf("%w: uuid: %v", ErrMalformed, err)
		}
		return UUID(parsed), nil

	case KindDatetime:
		var value datetimePayload
		if err := decodePayload(stored, &value); err != nil {
			return nil, err
		}
		if value.Nanoseconds < 0 || value.Nanoseconds >= int32(time.Second) {
			return nil, fmt.Errorf("%w: datetime nanoseconds %d out of range", ErrMalformed, value.Nanoseconds)
		}
		zone := time.FixedZone("", int(value.OffsetSeconds))
		return Datetime(time.Unix(value.Seconds, int64(value.Nanoseconds)).In(zone)), nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(stored.Kind))
	}
}

// isNullPayload reports whether the payload is absent or CBOR null.
func isNullPayload(payload codec.RawMessage) bool {
	return len(payload) == 0 || (len(payload) == 1 && payload[0] == 0xf6)
}

func decodePayload(stored envelope, target any) error {
	if err := codec.Unmarshal(stored.Payload, target); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, stored.Kind, err)
	}
	return nil
}
