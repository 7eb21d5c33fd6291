// Package mfmwriter builds ready-made PCMSegments for whole MFM/FM sectors
// — the "ID address mark preamble, data address mark preamble, CRC,
// post-data gap" write helpers named in §4.5, grounded on
// Storage::Encodings::MFM's write-side helpers (GetMFMTrackWithSectors-style
// assembly used by the 8272/Acorn/Oric controllers).
package mfmwriter

import (
	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/disk"
	"github.com/intuitionamiga/clkcore/internal/storage/disk/controller"
)

const (
	crc16Poly = 0x1021
	crc16Init = 0xFFFF
)

func crc16(seed uint16, data []byte) uint16 {
	crc := seed
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crc16Poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// builder accumulates MFM cells into a growing PCMSegment, tracking the
// last data bit written so the clock-bit rule (§4.5: "clock_i =
// NOT(data_i OR data_{i-1})") carries correctly across byte boundaries.
type builder struct {
	bits        []bool
	lastDataBit bool
	bitLength   rational.Time
}

func newBuilder(bitLength rational.Time) *builder {
	return &builder{bitLength: bitLength}
}

func (b *builder) writeByte(value uint8) {
	cells, last := controller.EncodeMFMClockBits(value, b.lastDataBit)
	b.lastDataBit = last
	for i := 15; i >= 0; i-- {
		b.bits = append(b.bits, (cells>>uint(i))&1 != 0)
	}
}

// writeSyncMark writes a raw 16-bit cell pattern directly (bypassing the
// clock-bit rule), used for the 0x4489/0x5224 missing-clock sync marks
// that MFM's sync detection relies on (§4.5).
func (b *builder) writeSyncMark(pattern uint16) {
	for i := 15; i >= 0; i-- {
		b.bits = append(b.bits, (pattern>>uint(i))&1 != 0)
	}
	b.lastDataBit = pattern&1 != 0
}

func (b *builder) writeBytes(values []byte) {
	for _, v := range values {
		b.writeByte(v)
	}
}

func (b *builder) segment() disk.PCMSegment {
	seg := disk.NewPCMSegment(uint32(len(b.bits)), b.bitLength)
	for i, bit := range b.bits {
		seg.SetBit(uint32(i), bit)
	}
	return seg
}

// SectorParams describes the physical/logical addressing fields an ID
// address mark records (§4.5's "ID... four header bytes" per §8 scenario
// 3).
type SectorParams struct {
	Track, Head, Sector uint8
	SizeCode            uint8 // 0=128, 1=256, 2=512, 3=1024 bytes, the FDC convention
}

// WriteIDDataJoiner builds the PCMSegment for one complete MFM sector
// region: gap, ID address mark (sync x3 + 0xFE + CHRN + CRC), gap, data
// address mark (sync x3 + 0xFB + data + CRC), post-data gap — named
// directly after write_id_data_joiner (§4.6).
func WriteIDDataJoiner(params SectorParams, data []byte, bitLength rational.Time) disk.PCMSegment {
	b := newBuilder(bitLength)

	// Gap 2: pre-ID-mark filler.
	b.writeBytes(repeated(0x4E, 12))
	b.writeBytes(repeated(0x00, 12))

	for i := 0; i < 3; i++ {
		b.writeSyncMark(0x4489)
	}
	header := []byte{0xFE, params.Track, params.Head, params.Sector, params.SizeCode}
	b.writeByte(header[0])
	b.writeByte(header[1])
	b.writeByte(header[2])
	b.writeByte(header[3])
	b.writeByte(header[4])
	idCRC := crc16(crc16SeedAfterSync(), header)
	b.writeByte(uint8(idCRC >> 8))
	b.writeByte(uint8(idCRC & 0xFF))

	// Gap 3: inter-mark filler before the data field.
	b.writeBytes(repeated(0x4E, 22))
	b.writeBytes(repeated(0x00, 12))

	for i := 0; i < 3; i++ {
		b.writeSyncMark(0x4489)
	}
	b.writeByte(0xFB)
	b.writeBytes(data)
	dataCRC := crc16(crc16SeedAfterSync(), append([]byte{0xFB}, data...))
	b.writeByte(uint8(dataCRC >> 8))
	b.writeByte(uint8(dataCRC & 0xFF))

	// Gap 4: post-data filler.
	b.writeBytes(repeated(0x4E, 16))

	return b.segment()
}

// crc16SeedAfterSync is the CRC reseed value after an MFM sync mark (§4.5:
// "re-seed CRC to 0xcdb4"). The writer applies it to the marker byte (0xFE
// or 0xFB) plus the following field, matching how MFMController's reader
// side reseeds on sync detection and then folds in every subsequent byte
// starting with the marker itself.
func crc16SeedAfterSync() uint16 { return 0xcdb4 }

func repeated(value byte, count int) []byte {
	out := make([]byte, count)
	for i := range out {
		out[i] = value
	}
	return out
}

func (b *builder) writeFMByte(value uint8) {
	// MFMController's FM decode path takes decodeByte's no-interleave
	// branch: after 16 bits have shifted in, it reads the register's low 8
	// bits directly as the data byte (§4.5: "FM mode has no clock
	// interleave to remove"). A 16-bit cell pattern of (clockByte<<8 |
	// dataByte), clock byte all-ones, reproduces exactly that: the data
	// byte shifts in last and ends up sitting in the low 8 bits.
	cells := uint16(0xFF00) | uint16(value)
	for i := 15; i >= 0; i-- {
		b.bits = append(b.bits, (cells>>uint(i))&1 != 0)
	}
}

func (b *builder) writeFMBytes(values []byte) {
	for _, v := range values {
		b.writeFMByte(v)
	}
}

// FM address marks (§4.5: "classical FM address marks 0xF57E/0xF56F/
// 0xF56A/0xF56B for IDAM/DAM/DDAM/Index").
const (
	fmMarkIDAM    = 0xF57E
	fmMarkDAM     = 0xF56F
	fmMarkIndexAM = 0xF56B
)

// WriteIDDataJoinerFM is WriteIDDataJoiner's single-density analogue, used
// by the FM-only formats (Acorn SSD/DSD): no MFM sync marks or clock-bit
// interleave, direct address marks instead (§4.5's FM branch).
func WriteIDDataJoinerFM(params SectorParams, data []byte, bitLength rational.Time) disk.PCMSegment {
	b := newBuilder(bitLength)

	b.writeFMBytes(repeated(0xFF, 6))
	b.writeSyncMark(fmMarkIDAM)
	header := []byte{0xFE, params.Track, params.Head, params.Sector, params.SizeCode}
	b.writeFMBytes(header[1:])
	idCRC := crc16(crc16Init, header)
	b.writeFMByte(uint8(idCRC >> 8))
	b.writeFMByte(uint8(idCRC & 0xFF))

	b.writeFMBytes(repeated(0xFF, 11))
	b.writeSyncMark(fmMarkDAM)
	b.writeFMBytes(data)
	dataCRC := crc16(crc16Init, append([]byte{0xFB}, data...))
	b.writeFMByte(uint8(dataCRC >> 8))
	b.writeFMByte(uint8(dataCRC & 0xFF))

	b.writeFMBytes(repeated(0xFF, 16))
	return b.segment()
}

// WriteTrackPreambleFM is WriteTrackPreamble's single-density analogue.
func WriteTrackPreambleFM(bitLength rational.Time) disk.PCMSegment {
	b := newBuilder(bitLength)
	b.writeFMBytes(repeated(0xFF, 40))
	b.writeSyncMark(fmMarkIndexAM)
	b.writeFMBytes(repeated(0xFF, 26))
	return b.segment()
}

// WriteTrackPreamble builds the start-of-track gap (§4.5: "start-of-track
// gap") preceding the first sector on a freshly-formatted track: gap 1
// filler followed by three index sync marks and an index address mark.
func WriteTrackPreamble(bitLength rational.Time) disk.PCMSegment {
	b := newBuilder(bitLength)
	b.writeBytes(repeated(0x4E, 80))
	b.writeBytes(repeated(0x00, 12))
	for i := 0; i < 3; i++ {
		b.writeSyncMark(0x5224)
	}
	b.writeByte(0xFC)
	b.writeBytes(repeated(0x4E, 50))
	return b.segment()
}
