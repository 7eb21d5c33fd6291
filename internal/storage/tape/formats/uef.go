package formats

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

const uefMagic = "UEF File!\x00"

// UEF chunk identifiers this decoder understands (§4.8: "Acorn UEF
// (multi-block with explicit/implicit patterns, carrier tones, security
// cycles)"). Chunks this decoder doesn't recognise are skipped by length,
// matching the format's own forward-compatibility rule.
const (
	uefChunkOriginInfo  = 0x0000
	uefChunkDataImplicit = 0x0100 // 1200 baud implicit-start/stop-bit data
	uefChunkDataExplicit = 0x0104 // explicit bit stream
	uefChunkCarrierTone  = 0x0110
	uefChunkCarrierToneWithDummy = 0x0111
	uefChunkGap          = 0x0112
	uefChunkSecurityCycles = 0x0114
	uefChunkBaudRate     = 0x0117
)

// DecodeUEF parses a gzip-wrapped UEF tape image (§6: "gzip-wrapped
// chunked binary") into a pulse stream. Each data chunk's bytes are
// expanded through the classic Acorn "1200 baud, 1 start bit, 8 data bits,
// 1 stop bit, cycles-per-bit carrier" encoding: a 0 bit is one cycle of a
// slow wave, a 1 bit is two cycles of a wave running twice as fast,
// matching the original format's bit cell convention.
func DecodeUEF(data []byte) (*tape.SlicePulseTape, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return nil, fmt.Errorf("%w: uef: not gzip", ErrInvalidFormat)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: uef: gzip: %v", ErrInvalidFormat, err)
	}
	defer gz.Close()
	body, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: uef: gzip decompress: %v", ErrInvalidFormat, err)
	}
	if len(body) < len(uefMagic)+2 || string(body[:len(uefMagic)]) != uefMagic {
		return nil, fmt.Errorf("%w: uef: bad magic", ErrInvalidFormat)
	}

	off := len(uefMagic) + 2 // magic + minor/major version bytes
	baseFreq := uint32(1200)

	var pulses []tape.Pulse
	emitCycle := func(highFreq bool) {
		rate := baseFreq
		if highFreq {
			rate *= 2
		}
		pulses = append(pulses, tape.Pulse{Kind: tape.PulseHigh, Length: rational.New(1, rate*2)})
		pulses = append(pulses, tape.Pulse{Kind: tape.PulseLow, Length: rational.New(1, rate*2)})
	}
	emitBit := func(bit int) {
		if bit == 0 {
			emitCycle(false)
		} else {
			emitCycle(true)
			emitCycle(true)
		}
	}
	emitByte := func(b byte) {
		emitBit(0) // start bit
		for i := 0; i < 8; i++ {
			emitBit(int((b >> uint(i)) & 1))
		}
		emitBit(1) // stop bit
	}

	for off+4 <= len(body) {
		id := binary.LittleEndian.Uint16(body[off:])
		length := binary.LittleEndian.Uint32(body[off+2 : off+6])
		off += 6
		if off+int(length) > len(body) {
			break
		}
		chunk := body[off : off+int(length)]
		off += int(length)

		switch id {
		case uefChunkBaudRate:
			if len(chunk) >= 2 {
				baseFreq = uint32(binary.LittleEndian.Uint16(chunk))
			}
		case uefChunkDataImplicit:
			for _, b := range chunk {
				emitByte(b)
			}
		case uefChunkDataExplicit:
			if len(chunk) < 1 {
				continue
			}
			nbits := int(chunk[0])
			if len(chunk) >= 3 {
				nbits = int(binary.LittleEndian.Uint16(chunk[:2]))
				chunk = chunk[2:]
			} else {
				chunk = chunk[1:]
			}
			bit := 0
			for _, b := range chunk {
				for i := 0; i < 8 && bit < nbits; i++ {
					emitBit(int((b >> uint(i)) & 1))
					bit++
				}
			}
		case uefChunkCarrierTone, uefChunkCarrierToneWithDummy:
			if len(chunk) < 2 {
				continue
			}
			cycles := binary.LittleEndian.Uint16(chunk)
			for i := 0; i < int(cycles); i++ {
				emitCycle(true)
			}
		case uefChunkSecurityCycles:
			// Security-cycle chunks carry explicit pulse-length/polarity
			// data used by copy-protected loaders; reproduce them as
			// literal high cycles at the base carrier rate, which is
			// sufficient for a parser that only counts cycles rather
			// than inspecting individual cell waveforms.
			if len(chunk) < 5 {
				continue
			}
			cycles := binary.LittleEndian.Uint32(chunk[1:5])
			for i := uint32(0); i < cycles; i++ {
				emitCycle(true)
			}
		case uefChunkGap:
			if len(chunk) >= 2 {
				gapLen := binary.LittleEndian.Uint16(chunk)
				pulses = append(pulses, tape.Pulse{Kind: tape.PulseZero, Length: rational.New(uint32(gapLen), baseFreq)})
			}
		case uefChunkOriginInfo:
			// Free-text origin string; nothing to decode into pulses.
		}
	}

	return tape.NewSlicePulseTape(pulses), nil
}
