package pll

import (
	"testing"

	"github.com/intuitionamiga/clkcore/internal/clock"
)

type recordingDelegate struct {
	bits []int
}

func (d *recordingDelegate) DigitalPhaseLockedLoopOutputBit(bit int) {
	d.bits = append(d.bits, bit)
}

func TestLoopEmitsZeroWhenNoPulseArrivesInWindow(t *testing.T) {
	d := &recordingDelegate{}
	loop := NewLoop(100, 10, d)
	loop.RunFor(clock.Cycles(350)) // three and a half windows, no pulses

	if len(d.bits) < 3 {
		t.Fatalf("expected at least 3 windows to have elapsed, got %d bits", len(d.bits))
	}
	for _, b := range d.bits {
		if b != 0 {
			t.Fatalf("expected all bits to be 0 with no pulses, got %v", d.bits)
		}
	}
}

func TestLoopEmitsOneOncePerWindowOnPulse(t *testing.T) {
	d := &recordingDelegate{}
	loop := NewLoop(100, 10, d)

	loop.RunFor(clock.Cycles(50))
	loop.AddPulse()
	loop.AddPulse() // spurious second pulse in the same window: ignored
	loop.RunFor(clock.Cycles(50))

	if len(d.bits) != 1 {
		t.Fatalf("expected exactly one emitted bit for one window, got %v", d.bits)
	}
	if d.bits[0] != 1 {
		t.Fatalf("expected bit 1 for a window with a pulse, got %d", d.bits[0])
	}
}

func TestLoopWindowLengthStaysWithinTolerance(t *testing.T) {
	d := &recordingDelegate{}
	loop := NewLoop(100, 10, d)

	for i := 0; i < 20; i++ {
		loop.RunFor(clock.Cycles(95))
		loop.AddPulse()
	}
	if loop.windowLength < 90 || loop.windowLength > 110 {
		t.Fatalf("expected window length to stay within tolerance, got %d", loop.windowLength)
	}
}

// TestLoopTracksTrueIntervalAcrossMultipleWindows covers a gap spanning more
// than one window's worth of cycles before the next pulse arrives — the
// normal case for a bitstream with runs of several zero cells between flux
// transitions. The recorded interval must be the true elapsed span (150
// cycles), not the final window's phase remainder (which would be 50).
func TestLoopTracksTrueIntervalAcrossMultipleWindows(t *testing.T) {
	d := &recordingDelegate{}
	loop := NewLoop(100, 60, d)

	loop.RunFor(clock.Cycles(150)) // spans one full window plus half of the next
	loop.AddPulse()

	const wantWindowLength = 75 // 150 / round(150/100 to nearest) = 150/2
	if loop.windowLength != wantWindowLength {
		t.Fatalf("expected window length %d from the true 150-cycle interval, got %d (phase-based recording would give 50)", wantWindowLength, loop.windowLength)
	}
}

func TestSetClocksPerBitResetsEstimate(t *testing.T) {
	loop := NewLoop(100, 10, nil)
	loop.SetClocksPerBit(200)
	if loop.ClocksPerBit() != 200 {
		t.Fatalf("expected updated clocks-per-bit, got %d", loop.ClocksPerBit())
	}
}
