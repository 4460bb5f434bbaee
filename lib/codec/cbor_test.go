// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type storedRow struct {
	Kind  uint8      `cbor:"1,keyasint"`
	Value RawMessage `cbor:"2,keyasint"`
}

func TestRawMessageDefersDecoding(t *testing.T) {
	payload, err := Marshal("hello")
	if err != nil {
		t.Fatalf("Marshal payload: %v", err)
	}

	data, err := Marshal(storedRow{Kind: 3, Value: payload})
	if err != nil {
		t.Fatalf("Marshal row: %v", err)
	}

	var decoded storedRow
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal row: %v", err)
	}
	if decoded.Kind != 3 {
		t.Errorf("Kind = %d, want 3", decoded.Kind)
	}

	var text string
	if err := Unmarshal(decoded.Value, &text); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if text != "hello" {
		t.Errorf("payload = %q, want %q", text, "hello")
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]int64{"zeta": 1, "alpha": 2, "mid": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var row storedRow
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &row); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestEncoderStream(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, value := range []string{"a", "b"} {
		if err := encoder.Encode(value); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	first, err := Marshal("a")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buffer.Bytes(), first) {
		t.Errorf("stream %x does not start with %x", buffer.Bytes(), first)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"kind": "counter"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"counter"`) {
		t.Errorf("notation %q does not contain \"counter\"", notation)
	}
}
