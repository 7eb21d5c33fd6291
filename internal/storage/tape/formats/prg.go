package formats

import (
	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

// EncodePRGAsTape turns a raw Commodore PRG image into the pulse stream the
// Datasette ROM's tape loader expects (§6: "Commodore PRG-as-tape (with
// computed bit-flip pattern)"): a long-pulse leader, a marker cell and the
// bytes, then a shorter leader, a second marker cell and the same bytes
// with every bit inverted. Each byte is followed by an odd-parity cell, and
// every cell is a pulse pair: (short, medium) for 0, (medium, short) for 1;
// long pulses appear only in the leaders. shortPulse/mediumPulse/longPulse are the three nominal
// half-cycle widths the real hardware's kernal ROM timing loop produces.
func EncodePRGAsTape(prg []byte, shortPulse, mediumPulse, longPulse rational.Time) []tape.Pulse {
	var pulses []tape.Pulse
	emit := func(length rational.Time) {
		pulses = append(pulses, tape.Pulse{Kind: tape.PulseHigh, Length: length})
	}
	emitBitCell := func(bit int) {
		if bit == 0 {
			emit(shortPulse)
			emit(mediumPulse)
		} else {
			emit(mediumPulse)
			emit(shortPulse)
		}
	}
	emitByte := func(b byte) {
		parity := byte(1)
		for i := 0; i < 8; i++ {
			bit := (b >> uint(i)) & 1
			emitBitCell(int(bit))
			parity ^= bit
		}
		emitBitCell(int(parity & 1))
	}
	emitLeader := func(cycles int) {
		for i := 0; i < cycles; i++ {
			emit(longPulse)
		}
	}

	emitLeader(0x6a0)
	// New-data marker cell, then the block itself, sent twice as the real
	// format does ("data" pass followed by a bit-flipped "repeat" pass so
	// the loader can correct single-bit errors by majority vote).
	emitBitCell(1)
	for _, b := range prg {
		emitByte(b)
	}
	emitLeader(0x1a)
	emitBitCell(1)
	for _, b := range prg {
		emitByte(b ^ 0xFF)
	}
	return pulses
}
