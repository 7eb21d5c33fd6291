package formats

import (
	"testing"

	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

func buildZX8081BytePulses(value uint8, pulseLength, gap rational.Time) []tape.Pulse {
	var pulses []tape.Pulse
	for i := 7; i >= 0; i-- {
		n := 4
		if (value>>uint(i))&1 == 1 {
			n = 9
		}
		for j := 0; j < n; j++ {
			pulses = append(pulses, tape.Pulse{Kind: tape.PulseHigh, Length: pulseLength})
		}
		pulses = append(pulses, tape.Pulse{Kind: tape.PulseLow, Length: gap})
	}
	return pulses
}

func TestZX8081ParserDecodesAByteMSBFirst(t *testing.T) {
	pulseLength := rational.New(1, 10000)
	gap := rational.New(13, 10000)

	pulses := buildZX8081BytePulses(0x5A, pulseLength, gap)
	tp := tape.NewSlicePulseTape(pulses)
	parser := NewZX8081Parser(tp, pulseLength, gap)

	value, ok := parser.GetNextByte()
	if !ok {
		t.Fatalf("GetNextByte failed on a well-formed burst sequence")
	}
	if value != 0x5A {
		t.Fatalf("decoded value = 0x%02X, want 0x5A", value)
	}
	if parser.HasError() {
		t.Fatalf("HasError() true after a successful decode")
	}
}

func TestZX8081ParserLatchesErrorOnBadBurstCount(t *testing.T) {
	pulseLength := rational.New(1, 10000)
	gap := rational.New(13, 10000)

	// 6 short pulses is neither a valid 0 (4) nor 1 (9) burst.
	pulses := []tape.Pulse{
		{Length: pulseLength}, {Length: pulseLength}, {Length: pulseLength},
		{Length: pulseLength}, {Length: pulseLength}, {Length: pulseLength},
		{Length: gap},
	}
	tp := tape.NewSlicePulseTape(pulses)
	parser := NewZX8081Parser(tp, pulseLength, gap)

	if _, ok := parser.GetNextBit(); ok {
		t.Fatalf("expected GetNextBit to fail on an invalid burst count")
	}
	if !parser.HasError() {
		t.Fatalf("expected HasError() after an invalid burst")
	}
}
