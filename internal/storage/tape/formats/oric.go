package formats

import (
	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

// OricParser decodes an Oric tape's pulse stream into bytes, per §4.8:
// "Oric (13-bit framing with parity)" — 1 start bit, 8 data bits, 1 parity
// bit, 3 stop bits (13 cells total, LSB-first), each bit a zero-crossing
// count of a ~4800/2400 Hz dual-tone carrier (a "0" is one cycle at the low
// tone, a "1" is one cycle at the high tone).
type OricParser struct {
	symbols *tape.SymbolStream
	shifter *tape.ByteShifter
	err     bool
}

// oricMatcher recognises a single wave as directly being bit 0 (long/low
// tone) or bit 1 (short/high tone) — Oric's encoding needs no multi-wave
// pattern, so MaxPattern is 1 and every wave maps straight to a bit symbol.
type oricMatcher struct{}

func (oricMatcher) MaxPattern() int { return 1 }

func (oricMatcher) Match(buf []tape.Wave) (symbol int, consumed int, matched bool) {
	if len(buf) == 0 {
		return 0, 0, false
	}
	switch buf[0].Kind {
	case tape.WaveLong:
		return 0, 1, true
	case tape.WaveShort:
		return 1, 1, true
	default:
		return 0, 1, true // unrecognised wave still consumes, feeding a framing error upward
	}
}

// NewOricParser builds a parser reading from t. lowTone/highTone are the
// nominal pulse durations (one cycle of the low or high carrier tone) used to
// bucket each pulse into a WaveShort (high tone, bit 1) or WaveLong (low
// tone, bit 0).
func NewOricParser(t tape.Tape, lowTone, highTone rational.Time) *OricParser {
	classifier := tape.WaveClassifier{
		ShortMin: highTone.Mul(rational.New(9, 10)),
		ShortMax: highTone.Mul(rational.New(11, 10)),
		LongMin:  lowTone.Mul(rational.New(9, 10)),
		LongMax:  lowTone.Mul(rational.New(11, 10)),
	}
	waves := tape.NewWaveStream(t, classifier)
	return &OricParser{
		symbols: tape.NewSymbolStream(waves, oricMatcher{}),
		shifter: tape.NewByteShifterStopBits(true, false, 3),
	}
}

// GetNextBit returns the next decoded bit and whether one was available.
func (p *OricParser) GetNextBit() (bit int, ok bool) {
	sym, have := p.symbols.Next()
	if !have {
		p.err = true
		return 0, false
	}
	return sym, true
}

// GetNextByte decodes the next full 13-cell frame into a byte.
func (p *OricParser) GetNextByte() (value uint8, ok bool) {
	p.shifter.Reset()
	for !p.shifter.Ready() {
		bit, have := p.GetNextBit()
		if !have {
			p.err = true
			return 0, false
		}
		p.shifter.PushBit(bit)
	}
	v, frameOK := p.shifter.Take()
	if !frameOK {
		p.err = true
	}
	return v, frameOK
}

// HasError reports whether a parse error has been latched (§7, §4.8).
func (p *OricParser) HasError() bool { return p.err }
