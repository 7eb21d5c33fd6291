// Package crt implements the per-cycle signal-to-scan state machine of
// §4.9: a fly-wheel horizontal counter that predicts the next hsync pulse
// and tolerates small timing deviations, a vertical counter, and a
// sync-capacitor charge model that detects vsync from sustained sync
// duration — the same shape video_antic.go's vcount/scanline counters
// track by hand for one specific machine, generalized here into a
// reusable, per-Config state machine any host machine can drive.
package crt

import (
	"github.com/intuitionamiga/clkcore/internal/video/scantarget"
)

// SignalKind is the per-cycle signal state a host machine reports to the
// generator (§4.9: "sync, blank, colour-burst, pixel, level").
type SignalKind int

const (
	Blank SignalKind = iota
	Sync
	ColourBurst
	Pixel
	Level
)

// Config carries the machine-specific constants kept explicit rather than
// guessed: every calling machine has a subtly different
// `cycles_per_line`/`lines_per_field`/sync-capacitor timing, so none of it
// is hardcoded here.
type Config struct {
	CyclesPerLine int64
	LinesPerField int64
	// HsyncErrorWindow is the flywheel's tolerance, in cycles, around the
	// expected hsync position. Defaults to CyclesPerLine/32 if zero
	// (§4.9: "a small hsync_error_window (≈ cycles_per_line / 32)").
	HsyncErrorWindow int64
	// SyncCapacityLineChargeThreshold is, in whole scanlines' worth of sync
	// charge, the point at which sustained sync is recognised as vsync
	// rather than hsync (§3: "exceed a threshold equal to three scanlines'
	// worth").
	SyncCapacityLineChargeThreshold int64
}

func (c Config) resolved() Config {
	if c.HsyncErrorWindow == 0 {
		c.HsyncErrorWindow = c.CyclesPerLine / 32
	}
	if c.SyncCapacityLineChargeThreshold == 0 {
		c.SyncCapacityLineChargeThreshold = 3
	}
	return c
}

// Generator converts a per-cycle signal stream into Scan records delivered
// to a ScanTarget (§4.9, §4.10).
type Generator struct {
	cfg Config

	horizontalCounter   int64
	verticalCounter     int64
	flywheelTarget      int64 // self-correcting expected cycles_per_line
	syncCapacitorCharge int64
	isInHsync           bool
	isInVsync           bool
	vretraceCounter     int64

	target scantarget.ScanTarget

	spanSignal      SignalKind
	spanStartH      int64
	spanStartV      int64
	spanHaveHandle  bool
	spanHandle      int
	spanBuf         []byte
	spanLen         int

	recentHsyncDeltas [8]int64
	recentHsyncCount  int
	recentHsyncNext   int
}

// NewGenerator builds a Generator bound to target, driven by the given
// Config (§4.9's invariant `horizontal_counter < cycles_per_line` holds
// from the first cycle: both counters start at zero).
func NewGenerator(cfg Config, target scantarget.ScanTarget) *Generator {
	cfg = cfg.resolved()
	return &Generator{cfg: cfg, flywheelTarget: cfg.CyclesPerLine, target: target}
}

// thresholdCycles is the sync-capacitor charge level, in cycles, that
// triggers vsync recognition.
func (g *Generator) thresholdCycles() int64 {
	return g.cfg.SyncCapacityLineChargeThreshold * g.cfg.CyclesPerLine
}

// Advance processes one cycle of the given signal, with level/phase only
// meaningful for Pixel/Level spans (passed through to the allocated write
// area verbatim so the host's own pixel encoding survives untouched).
func (g *Generator) Advance(signal SignalKind, level byte) {
	if signal != g.spanSignal || !g.spanHaveHandle {
		g.closeSpan()
		g.openSpan(signal)
	}
	g.writeSample(level)

	if signal == Sync {
		g.syncCapacitorCharge++
	} else if g.syncCapacitorCharge > 0 {
		g.syncCapacitorCharge--
	}

	g.horizontalCounter++

	if signal == Sync && !g.isInHsync {
		g.isInHsync = true
		g.handleHsyncEdge()
	} else if signal != Sync {
		g.isInHsync = false
		g.isInVsync = false
	}

	if g.syncCapacitorCharge > g.thresholdCycles() {
		g.triggerVsync()
		return
	}

	if g.horizontalCounter >= g.flywheelTarget+g.cfg.HsyncErrorWindow {
		// No observed hsync arrived within tolerance: retrigger on the
		// flywheel's own prediction rather than waiting indefinitely
		// (§4.9: "retriggering on the flywheel's internal count").
		g.triggerHsync(false)
	}
}

// handleHsyncEdge processes an observed sync edge: if it falls within the
// tolerance window of the predicted position it's an "expected" hsync and
// the flywheel's prediction is refined by averaging; otherwise it's noise
// or a severely out-of-tolerance pulse and is ignored, left for the
// no-pulse-arrived retrigger path to eventually fire.
func (g *Generator) handleHsyncEdge() {
	delta := g.horizontalCounter - g.flywheelTarget
	if delta < 0 {
		delta = -delta
	}
	if delta <= g.cfg.HsyncErrorWindow {
		g.triggerHsync(true)
	}
}

func (g *Generator) triggerHsync(observed bool) {
	if observed {
		g.recentHsyncDeltas[g.recentHsyncNext] = g.horizontalCounter
		g.recentHsyncNext = (g.recentHsyncNext + 1) % len(g.recentHsyncDeltas)
		if g.recentHsyncCount < len(g.recentHsyncDeltas) {
			g.recentHsyncCount++
		}
		g.flywheelTarget = g.averageObservedPositions()
	}

	g.horizontalCounter = 0
	g.verticalCounter++
	g.target.Announce(scantarget.HorizontalRetrace)

	if g.verticalCounter >= g.cfg.LinesPerField {
		g.verticalCounter = 0
	}
}

func (g *Generator) averageObservedPositions() int64 {
	if g.recentHsyncCount == 0 {
		return g.cfg.CyclesPerLine
	}
	var sum int64
	for i := 0; i < g.recentHsyncCount; i++ {
		sum += g.recentHsyncDeltas[i]
	}
	return sum / int64(g.recentHsyncCount)
}

func (g *Generator) triggerVsync() {
	g.syncCapacitorCharge = 0
	g.isInVsync = true
	g.verticalCounter = 0
	g.horizontalCounter = 0
	g.vretraceCounter++
	g.target.Announce(scantarget.VerticalRetrace)
}

// IsInVsync reports whether the most recent cycle was recognised as part
// of a vertical-sync pulse.
func (g *Generator) IsInVsync() bool { return g.isInVsync }

// VerticalRetraceCount returns the number of vertical retraces triggered
// so far, for tests asserting field-rate invariants (§8 scenario 4).
func (g *Generator) VerticalRetraceCount() int64 { return g.vretraceCounter }

func (g *Generator) openSpan(signal SignalKind) {
	g.spanSignal = signal
	g.spanStartH = g.horizontalCounter
	g.spanStartV = g.verticalCounter
	handle, buf := g.target.AllocateWriteArea(int(g.cfg.CyclesPerLine))
	g.spanHandle = handle
	g.spanBuf = buf
	g.spanLen = 0
	g.spanHaveHandle = true
}

func (g *Generator) writeSample(level byte) {
	if !g.spanHaveHandle || g.spanLen >= len(g.spanBuf) {
		return
	}
	g.spanBuf[g.spanLen] = level
	g.spanLen++
}

// closeSpan emits exactly one Scan record per contiguous span of identical
// signal type (§4.9).
func (g *Generator) closeSpan() {
	if !g.spanHaveHandle {
		return
	}
	g.target.ReduceAllocationTo(g.spanHandle, g.spanLen)
	g.target.Submit(scantarget.Scan{
		Start: scantarget.Point{X: fixed16(g.spanStartH, g.cfg.CyclesPerLine), Y: uint16(g.spanStartV)},
		End:   scantarget.Point{X: fixed16(g.horizontalCounter, g.cfg.CyclesPerLine), Y: uint16(g.verticalCounter)},
	})
	g.spanHaveHandle = false
}

// Flush closes any open span and flushes the target, called at end of
// field or whenever the host needs the generator's buffered output
// drained (e.g. before the host reads back a completed frame).
func (g *Generator) Flush() {
	g.closeSpan()
	g.target.Flush()
}

// fixed16 converts a cycle position within a line to the 16.0 fixed-point
// coordinate across the visible rectangle (§3's Scan coordinates).
func fixed16(cycle, cyclesPerLine int64) uint16 {
	if cyclesPerLine == 0 {
		return 0
	}
	const fullScale = 1 << 16
	v := cycle * fullScale / cyclesPerLine
	if v < 0 {
		v = 0
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	return uint16(v)
}
