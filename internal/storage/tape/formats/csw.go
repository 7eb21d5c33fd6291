// Package formats implements the per-format tape parsers and loaders named
// in §4.8/§6: CSW, UEF, Oric TAP, MSX CAS, and ZX80/81 O/P. CSW and UEF are
// whole-file decoders that produce a ready tape.SlicePulseTape directly
// (their own encoding already carries explicit pulse/polarity data); Oric,
// CAS, and ZX80/81 are pulse-level encodings read through the
// Wave→Symbol→Byte pipeline in the parent tape package.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

// ErrInvalidFormat is returned when a file fails a format's magic-number or
// structural invariant check (§7: "Format-invalid... fail with
// InvalidFormat, propagated out of constructors").
var ErrInvalidFormat = errors.New("formats: invalid file format")

const cswMagic = "Compressed Square Wave\x1a"

// cswCompression identifies CSW's body compression (§6: "RLE or ZRLE
// compression").
type cswCompression int

const (
	cswRLE cswCompression = iota
	cswZRLE
)

// DecodeCSW parses a CSW v1 or v2 file (§6, §8 scenario 2: "header
// 'Compressed Square Wave' 0x1a, major version 1 or 2") and returns the
// pulse stream it encodes. CSW stores single-bit polarity samples as a
// sample-rate-quantized run-length stream; each byte (or, for runs longer
// than 255 samples, a 0x00 byte followed by a little-endian uint32 sample
// count) gives the number of samples the current polarity holds before it
// flips.
func DecodeCSW(data []byte) (*tape.SlicePulseTape, error) {
	if len(data) < len(cswMagic)+4 {
		return nil, fmt.Errorf("%w: csw: short file", ErrInvalidFormat)
	}
	if string(data[:len(cswMagic)]) != cswMagic {
		return nil, fmt.Errorf("%w: csw: bad magic", ErrInvalidFormat)
	}
	off := len(cswMagic)
	major := data[off]
	off++

	var sampleRate uint32
	var compression cswCompression
	var initialPolarityHigh bool
	var bodyOffset int

	switch major {
	case 1:
		// v1: major, minor, rate(u16 LE), compressionType, flags(reserved),
		// header extension length(0), body immediately after a 0x20-byte
		// fixed header total.
		if len(data) < 0x20 {
			return nil, fmt.Errorf("%w: csw v1: short header", ErrInvalidFormat)
		}
		off++ // minor
		sampleRate = uint32(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		compression = cswCompression(data[off] - 1)
		off++
		flags := data[off]
		initialPolarityHigh = flags&1 != 0
		bodyOffset = 0x20
	case 2:
		if len(data) < 0x34 {
			return nil, fmt.Errorf("%w: csw v2: short header", ErrInvalidFormat)
		}
		off++ // minor
		sampleRate = binary.LittleEndian.Uint32(data[off:])
		off += 4
		off += 4 // total pulses, unused here
		compression = cswCompression(data[off] - 1)
		off++
		flags := data[off]
		initialPolarityHigh = flags&1 != 0
		off++
		headerExtLen := data[off]
		bodyOffset = 0x34 + int(headerExtLen)
	default:
		return nil, fmt.Errorf("%w: csw: unsupported major version %d", ErrInvalidFormat, major)
	}
	if bodyOffset > len(data) {
		return nil, fmt.Errorf("%w: csw: header extends past file", ErrInvalidFormat)
	}
	if sampleRate == 0 {
		return nil, fmt.Errorf("%w: csw: zero sample rate", ErrInvalidFormat)
	}

	body := data[bodyOffset:]
	if compression == cswZRLE {
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: csw: zlib: %v", ErrInvalidFormat, err)
		}
		defer zr.Close()
		decompressed, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: csw: zlib decompress: %v", ErrInvalidFormat, err)
		}
		body = decompressed
	}

	pulses := make([]tape.Pulse, 0, len(body))
	high := initialPolarityHigh
	i := 0
	for i < len(body) {
		samples := uint32(body[i])
		i++
		if samples == 0 {
			if i+4 > len(body) {
				break
			}
			samples = binary.LittleEndian.Uint32(body[i:])
			i += 4
		}
		kind := tape.PulseLow
		if high {
			kind = tape.PulseHigh
		}
		pulses = append(pulses, tape.Pulse{Kind: kind, Length: rational.New(samples, sampleRate)})
		high = !high
	}
	return tape.NewSlicePulseTape(pulses), nil
}
