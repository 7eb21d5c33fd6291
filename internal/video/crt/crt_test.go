package crt

import (
	"testing"

	"github.com/intuitionamiga/clkcore/internal/video/scantarget"
)

type fakeTarget struct {
	hCount, vCount int
	buf            []byte
}

func (f *fakeTarget) SetModals(scantarget.Modal, scantarget.ColourSpace, int) {}

func (f *fakeTarget) AllocateWriteArea(maxLength int) (int, []byte) {
	f.buf = make([]byte, maxLength)
	return 0, f.buf
}

func (f *fakeTarget) ReduceAllocationTo(int, int) {}

func (f *fakeTarget) Submit(scantarget.Scan) {}

func (f *fakeTarget) Announce(kind scantarget.RetraceKind) {
	switch kind {
	case scantarget.HorizontalRetrace:
		f.hCount++
	case scantarget.VerticalRetrace:
		f.vCount++
	}
}

func (f *fakeTarget) Flush() {}
func (f *fakeTarget) Reset() {}

// TestGeneratorProducesExpectedHorizontalRetraceRate drives a 1MHz-cycle,
// 64-cycle-per-line hsync pattern for exactly one second (§8 scenario 4:
// "15625 kHz hsync pattern... expect... 15625 horizontal retrace
// announcements (±1)").
func TestGeneratorProducesExpectedHorizontalRetraceRate(t *testing.T) {
	const cyclesPerLine = 64
	const totalCycles = 1000000

	target := &fakeTarget{}
	gen := NewGenerator(Config{CyclesPerLine: cyclesPerLine, LinesPerField: 312}, target)

	for cycle := 0; cycle < totalCycles; cycle++ {
		pos := cycle % cyclesPerLine
		if pos < 4 {
			gen.Advance(Sync, 0)
		} else {
			gen.Advance(Blank, 0)
		}
	}

	want := totalCycles / cyclesPerLine
	if diff := abs(target.hCount - want); diff > 1 {
		t.Fatalf("expected %d horizontal retraces (±1), got %d", want, target.hCount)
	}
}

// TestGeneratorTriggersVsyncOnSustainedSyncCharge verifies §3's invariant:
// "vsync is triggered when charge exceeds a threshold equal to three
// scanlines' worth".
func TestGeneratorTriggersVsyncOnSustainedSyncCharge(t *testing.T) {
	const cyclesPerLine = 64
	target := &fakeTarget{}
	gen := NewGenerator(Config{CyclesPerLine: cyclesPerLine, LinesPerField: 312, SyncCapacityLineChargeThreshold: 3}, target)

	threshold := 3 * cyclesPerLine
	for i := 0; i < threshold+1; i++ {
		gen.Advance(Sync, 0)
	}

	if target.vCount != 1 {
		t.Fatalf("expected exactly 1 vertical retrace once charge exceeds threshold, got %d", target.vCount)
	}
}

func TestGeneratorHorizontalCounterNeverReachesCyclesPerLineBeforeRetrace(t *testing.T) {
	const cyclesPerLine = 64
	target := &fakeTarget{}
	gen := NewGenerator(Config{CyclesPerLine: cyclesPerLine, LinesPerField: 312}, target)

	for cycle := 0; cycle < cyclesPerLine*4; cycle++ {
		gen.Advance(Blank, 0)
		if gen.horizontalCounter >= cyclesPerLine+gen.cfg.HsyncErrorWindow+1 {
			t.Fatalf("horizontal counter ran away: %d", gen.horizontalCounter)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
