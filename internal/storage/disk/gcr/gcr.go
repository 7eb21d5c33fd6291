// Package gcr implements 6-and-2 group-coded-recording nibble translation,
// the Apple II/Macintosh disk encoding ("GCR: group-coded recording...
// using 6-and-2 or 5-and-3 nibble translation"). The Macintosh end-to-end
// scenario (§8 scenario 6, "expect a PCMTrack whose bit count matches the
// GCR-encoded size for the correct sectors-per-track value") is
// unconstructible without it.
//
// Grounded on the Apple/Macintosh disk encoding's documented 6-and-2
// nibble table and sector-checksum convention.
package gcr

import "fmt"

// sixAndTwoTable maps a 6-bit value (0-63) to its 8-bit on-disk GCR nibble.
// This is the standard Apple 6-and-2 translate table: every entry has no
// more than one zero bit between consecutive one bits, among other
// self-clocking properties the original hardware depends on.
var sixAndTwoTable = [64]byte{
	0x96, 0x97, 0x9a, 0x9b, 0x9d, 0x9e, 0x9f, 0xa6,
	0xa7, 0xab, 0xac, 0xad, 0xae, 0xaf, 0xb2, 0xb3,
	0xb4, 0xb5, 0xb6, 0xb7, 0xb9, 0xba, 0xbb, 0xbc,
	0xbd, 0xbe, 0xbf, 0xcb, 0xcd, 0xce, 0xcf, 0xd3,
	0xd6, 0xd7, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde,
	0xdf, 0xe5, 0xe6, 0xe7, 0xe9, 0xea, 0xeb, 0xec,
	0xed, 0xee, 0xef, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6,
	0xf7, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff,
}

var sixAndTwoReverse [256]int8

func init() {
	for i := range sixAndTwoReverse {
		sixAndTwoReverse[i] = -1
	}
	for nibble, diskByte := range sixAndTwoTable {
		sixAndTwoReverse[diskByte] = int8(nibble)
	}
}

// EncodeNibble translates a 6-bit value (only the low 6 bits are used) to
// its on-disk byte.
func EncodeNibble(value uint8) byte {
	return sixAndTwoTable[value&0x3f]
}

// DecodeNibble reverses EncodeNibble. ok is false if diskByte is not a
// valid 6-and-2 nibble (a CRC/checksum-style invariant violation the
// caller, not this package, decides whether to tolerate).
func DecodeNibble(diskByte byte) (value uint8, ok bool) {
	v := sixAndTwoReverse[diskByte]
	if v < 0 {
		return 0, false
	}
	return uint8(v), true
}

// Encode6and2Sector converts a 256-byte sector into its on-disk 6-and-2
// representation: 342 encoded 6-bit nibbles (256 bytes' worth of top-6-bits
// plus a secondary buffer of bottom-2-bit triples) followed by a checksum
// nibble, written in the order secondary buffer, then primary buffer (first
// byte first), then checksum.
func Encode6and2Sector(sector []byte) ([]byte, error) {
	if len(sector) != 256 {
		return nil, fmt.Errorf("gcr: sector must be 256 bytes, got %d", len(sector))
	}

	// secondary[i] holds the 2-bit remainders of three input bytes packed
	// into 6 bits, one entry per 3 input bytes (86 entries for 256 bytes,
	// with padding for the final partial group), matching the classic
	// 3-bytes-to-4-nibbles GCR scheme's shape.
	const secondaryLen = 86
	secondary := make([]byte, secondaryLen)
	primary := make([]byte, 256)

	for i := 0; i < secondaryLen; i++ {
		b0 := sector[i]
		b1idx := i + secondaryLen
		b2idx := i + 2*secondaryLen
		var b1, b2 byte
		if b1idx < 256 {
			b1 = sector[b1idx]
		}
		if b2idx < 256 {
			b2 = sector[b2idx]
		}
		secondary[i] = ((b0 & 0x01) << 1) | ((b0 & 0x02) >> 1)
		secondary[i] = (secondary[i] << 2) | ((b1 & 0x01) << 1) | ((b1 & 0x02) >> 1)
		secondary[i] = (secondary[i] << 2) | ((b2 & 0x01) << 1) | ((b2 & 0x02) >> 1)

		primary[i] = b0 >> 2
		if b1idx < 256 {
			primary[b1idx] = b1 >> 2
		}
		if b2idx < 256 {
			primary[b2idx] = b2 >> 2
		}
	}

	out := make([]byte, 0, secondaryLen+256+1)
	var checksum byte
	appendNibble := func(v byte) {
		encoded := v ^ checksum
		checksum = v
		out = append(out, EncodeNibble(encoded))
	}
	for _, v := range secondary {
		appendNibble(v)
	}
	for _, v := range primary {
		appendNibble(v)
	}
	out = append(out, EncodeNibble(checksum))
	return out, nil
}

// Decode6and2Sector reverses Encode6and2Sector, returning the original
// 256-byte sector. ok is false if any on-disk nibble is invalid or the
// trailing checksum nibble doesn't match, mirroring §7's "CRC mismatch on
// disk read: recorded in the decoded token stream, not thrown."
func Decode6and2Sector(encoded []byte) (sector []byte, ok bool) {
	const secondaryLen = 86
	if len(encoded) != secondaryLen+256+1 {
		return nil, false
	}
	var checksum byte
	values := make([]byte, secondaryLen+256)
	for i, diskByte := range encoded[:secondaryLen+256] {
		nibble, valid := DecodeNibble(diskByte)
		if !valid {
			return nil, false
		}
		v := nibble ^ checksum
		checksum = v
		values[i] = v
	}
	finalNibble, valid := DecodeNibble(encoded[secondaryLen+256])
	if !valid || finalNibble != checksum {
		return nil, false
	}

	secondary := values[:secondaryLen]
	primary := values[secondaryLen:]

	sector = make([]byte, 256)
	for i := 0; i < secondaryLen; i++ {
		s := secondary[i]
		bits0 := (s >> 4) & 0x03
		bits1 := (s >> 2) & 0x03
		bits2 := s & 0x03

		b1idx := i + secondaryLen
		b2idx := i + 2*secondaryLen

		sector[i] = (primary[i] << 2) | ((bits0 & 0x02) >> 1) | ((bits0 & 0x01) << 1)
		if b1idx < 256 {
			sector[b1idx] = (primary[b1idx] << 2) | ((bits1 & 0x02) >> 1) | ((bits1 & 0x01) << 1)
		}
		if b2idx < 256 {
			sector[b2idx] = (primary[b2idx] << 2) | ((bits2 & 0x02) >> 1) | ((bits2 & 0x01) << 1)
		}
	}
	return sector, true
}

// SectorsPerTrackZone implements the Macintosh 400K/800K variable-speed
// zoning: the disk is divided into zones of 16 tracks each, with the outer
// zones carrying more sectors per track than the inner ones (§8 scenario
// 6: "the correct sectors-per-track value for the correct zone").
func SectorsPerTrackZone(track int) int {
	switch {
	case track < 16:
		return 12
	case track < 32:
		return 11
	case track < 48:
		return 10
	case track < 64:
		return 9
	default:
		return 8
	}
}
