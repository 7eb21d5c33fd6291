package formats

import (
	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

// ZX8081Parser decodes the Sinclair ZX80/ZX81 tape encoding (§4.8: "ZX80/81
// (per-bit 4/9-pulse encoding with 1 s inter-byte silence)"): each bit is a
// burst of short pulses — 4 for a 0, 9 for a 1 — followed by a 1.3ms gap;
// bytes are separated by pulse bursts with no explicit start/stop framing
// (the byte boundary is inferred from counting 8 bits).
type ZX8081Parser struct {
	tape        tape.Tape
	pulseLength rational.Time
	silence     rational.Time
	err         bool
}

// NewZX8081Parser builds a parser. pulseLength is the nominal duration of
// one of the short pulses making up a bit-burst; silence is the nominal
// inter-byte gap duration, used only to recognise (and skip) it between
// bytes rather than to decode data from it.
func NewZX8081Parser(t tape.Tape, pulseLength, silence rational.Time) *ZX8081Parser {
	return &ZX8081Parser{tape: t, pulseLength: pulseLength, silence: silence}
}

// countBurstPulses consumes pulses until it sees one much longer than
// pulseLength (the inter-bit gap), returning how many short pulses
// preceded it.
func (p *ZX8081Parser) countBurstPulses() int {
	count := 0
	for {
		if p.tape.IsAtEnd() {
			return count
		}
		pulse := p.tape.NextPulse()
		threshold := p.pulseLength.Mul(rational.New(3, 2))
		if threshold.Less(pulse.Length) {
			if count == 0 && !pulse.Length.Less(p.silence) {
				continue // inter-byte silence ahead of a burst: skip it
			}
			return count
		}
		count++
	}
}

// GetNextBit decodes one bit from a burst: 4 pulses is a 0, 9 is a 1; any
// other count latches the parser's error flag (§7).
func (p *ZX8081Parser) GetNextBit() (bit int, ok bool) {
	if p.tape.IsAtEnd() {
		p.err = true
		return 0, false
	}
	switch n := p.countBurstPulses(); n {
	case 4:
		return 0, true
	case 9:
		return 1, true
	default:
		p.err = true
		return 0, false
	}
}

// GetNextByte decodes 8 bits, MSB-first (the ZX80/81 ROM's own bit order).
func (p *ZX8081Parser) GetNextByte() (value uint8, ok bool) {
	var v uint8
	for i := 0; i < 8; i++ {
		bit, have := p.GetNextBit()
		if !have {
			p.err = true
			return 0, false
		}
		v = (v << 1) | uint8(bit)
	}
	return v, true
}

// HasError reports whether a parse error has been latched.
func (p *ZX8081Parser) HasError() bool { return p.err }

// IsAtEnd reports whether the underlying tape is exhausted.
func (p *ZX8081Parser) IsAtEnd() bool { return p.tape.IsAtEnd() }
