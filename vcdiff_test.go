package vcdiff

import (
	"testing"
)

// minimalDelta is a single empty window: no source segment, zero-length
// target, no data/instruction/address sections. Taken from the same seed
// corpus FuzzDecode uses.
var minimalDelta = []byte{0xd6, 0xc3, 0xc4, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00}

func TestNewDecoder(t *testing.T) {
	source := []byte("hello world")
	decoder := NewDecoder(source)

	if decoder == nil {
		t.Fatal("NewDecoder returned nil")
	}
}

func TestDecode(t *testing.T) {
	source := []byte("hello world")

	decoder := NewDecoder(source)
	result, err := decoder.Decode(minimalDelta)

	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if result == nil {
		t.Fatal("Decode returned nil result")
	}

	if len(result) != 0 {
		t.Fatalf("expected empty target, got %d bytes", len(result))
	}
}

func TestDecodeFunction(t *testing.T) {
	source := []byte("hello world")

	result, err := Decode(source, minimalDelta)

	if err != nil {
		t.Fatalf("Decode function failed: %v", err)
	}

	if result == nil {
		t.Fatal("Decode function returned nil result")
	}
}
