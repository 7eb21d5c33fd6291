package gcr

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeNibbleRoundTrip(t *testing.T) {
	for v := uint8(0); v < 64; v++ {
		disk := EncodeNibble(v)
		got, ok := DecodeNibble(disk)
		if !ok {
			t.Fatalf("value %d: expected valid decode", v)
		}
		if got != v {
			t.Fatalf("value %d: round trip got %d", v, got)
		}
	}
}

func TestDecodeNibbleRejectsInvalidByte(t *testing.T) {
	if _, ok := DecodeNibble(0x00); ok {
		t.Fatalf("expected 0x00 to be an invalid GCR nibble")
	}
}

func TestEncode6and2SectorRejectsWrongSize(t *testing.T) {
	if _, err := Encode6and2Sector(make([]byte, 100)); err == nil {
		t.Fatalf("expected an error for a non-256-byte sector")
	}
}

func TestEncode6and2SectorRoundTrip(t *testing.T) {
	sector := make([]byte, 256)
	for i := range sector {
		sector[i] = byte(i * 7)
	}
	encoded, err := Encode6and2Sector(sector)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, ok := Decode6and2Sector(encoded)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if !bytes.Equal(sector, decoded) {
		t.Fatalf("round trip mismatch:\nwant %x\ngot  %x", sector, decoded)
	}
}

func TestDecode6and2SectorDetectsChecksumCorruption(t *testing.T) {
	sector := make([]byte, 256)
	encoded, err := Encode6and2Sector(sector)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	encoded[len(encoded)-1] = EncodeNibble(0x3F)
	if _, ok := Decode6and2Sector(encoded); ok {
		t.Fatalf("expected checksum corruption to be detected")
	}
}

func TestSectorsPerTrackZoneMatchesMacintoshZoning(t *testing.T) {
	cases := map[int]int{0: 12, 15: 12, 16: 11, 31: 11, 32: 10, 47: 10, 48: 9, 63: 9, 64: 8, 79: 8}
	for track, want := range cases {
		if got := SectorsPerTrackZone(track); got != want {
			t.Fatalf("track %d: want %d sectors/track, got %d", track, want, got)
		}
	}
}
