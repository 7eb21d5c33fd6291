// Package pll implements DigitalPhaseLockedLoop (§4.3): reconstruction of a
// bit clock from an irregular flux-transition stream, the layer between a
// Drive's raw flux events and a disk controller's shift register.
//
// The fixed-capacity ring-buffer convention for offset_history mirrors
// video_antic.go's double-buffered per-scanline history arrays.
package pll

import "github.com/intuitionamiga/clkcore/internal/clock"

// OutputDelegate receives each reconstructed bit as the loop crosses a
// window boundary.
type OutputDelegate interface {
	DigitalPhaseLockedLoopOutputBit(bit int)
}

const historyCapacity = 8

// Loop reconstructs a bit clock from flux transitions (§3, §4.3).
type Loop struct {
	clocksPerBit int64
	tolerance    int64
	windowLength int64
	phase        int64

	// offset accumulates cycles across window boundaries since the last
	// accepted pulse, independent of phase's per-window wraparound. A gap
	// spanning several windows needs its true length recorded, not just
	// the final window's phase remainder.
	offset int64

	// offsetHistory is a fixed-capacity ring buffer of inter-transition
	// intervals, used to compute the rolling average window length.
	offsetHistory [historyCapacity]int64
	historyCount  int
	historyNext   int

	windowFilled bool
	delegate     OutputDelegate
}

// NewLoop constructs a loop expecting one bit every clocksPerBit clock
// units, adapting within ±tolerance.
func NewLoop(clocksPerBit, tolerance int64, delegate OutputDelegate) *Loop {
	if clocksPerBit <= 0 {
		clocksPerBit = 1
	}
	return &Loop{
		clocksPerBit: clocksPerBit,
		tolerance:    tolerance,
		windowLength: clocksPerBit,
		delegate:     delegate,
	}
}

// ClocksPerBit returns the loop's current estimate of clocks per bit.
func (l *Loop) ClocksPerBit() int64 { return l.clocksPerBit }

// SetClocksPerBit resets the loop's central estimate, e.g. when a
// controller switches density (§4.5's set_expected_bit_length analogue
// lives in the controller package, which calls this).
func (l *Loop) SetClocksPerBit(clocksPerBit int64) {
	if clocksPerBit <= 0 {
		clocksPerBit = 1
	}
	l.clocksPerBit = clocksPerBit
	l.windowLength = clocksPerBit
}

// RunFor advances phase by cycles. For each complete window crossed
// without an intervening AddPulse, it emits bit 0 (§4.3: "emit bit 0 on
// overflow without transition").
func (l *Loop) RunFor(cycles clock.Cycles) {
	remaining := int64(cycles)
	for remaining > 0 {
		toWindowEnd := l.windowLength - l.phase
		if toWindowEnd <= 0 {
			toWindowEnd = l.windowLength
		}
		step := remaining
		if toWindowEnd < step {
			step = toWindowEnd
		}
		l.phase += step
		l.offset += step
		remaining -= step

		if l.phase >= l.windowLength {
			l.phase -= l.windowLength
			if !l.windowFilled {
				l.emit(0)
			}
			l.windowFilled = false
		}
	}
}

// AddPulse reports a flux transition. The first transition within the
// current window emits bit 1 and marks the window filled (so RunFor's
// window-boundary check does not also emit a 0); the accumulated offset
// since the last pulse, which may span several window crossings for a
// long gap, feeds the rolling-average window-length estimate (§4.3).
// offset is reset here regardless of whether this call was the window's
// first transition, since a real flux edge occurred either way.
func (l *Loop) AddPulse() {
	if !l.windowFilled {
		l.emit(1)
		l.windowFilled = true
		l.recordOffset(l.offset)
		l.recompute()
	}
	// A second transition within the same window is spurious noise: only
	// the first transition per window is emitted as a bit.
	l.offset = 0
}

func (l *Loop) recordOffset(offset int64) {
	l.offsetHistory[l.historyNext] = offset
	l.historyNext = (l.historyNext + 1) % historyCapacity
	if l.historyCount < historyCapacity {
		l.historyCount++
	}
}

// recompute rounds the observed interval to the nearest integer multiple
// of clocksPerBit, averages the ring buffer, and clamps the new window
// length to [clocksPerBit-tolerance, clocksPerBit+tolerance], then nudges
// phase by half the observed error toward window centre (§4.3: "a simple
// proportional filter... nudges phase by half the observed error").
func (l *Loop) recompute() {
	if l.historyCount == 0 {
		return
	}
	var totalSpacing, totalDivisor int64
	for i := 0; i < l.historyCount; i++ {
		interval := l.offsetHistory[i]
		divisor := roundToNearestMultiple(interval, l.clocksPerBit)
		if divisor == 0 {
			divisor = 1
		}
		totalSpacing += interval
		totalDivisor += divisor
	}
	if totalDivisor == 0 {
		return
	}
	estimate := totalSpacing / totalDivisor
	estimate = clamp(estimate, l.clocksPerBit-l.tolerance, l.clocksPerBit+l.tolerance)
	l.windowLength = estimate

	centre := l.windowLength / 2
	phaseError := l.phase - centre
	l.phase -= phaseError / 2
	if l.phase < 0 {
		l.phase = 0
	}
}

func roundToNearestMultiple(value, multiple int64) int64 {
	if multiple == 0 {
		return 1
	}
	return (value + multiple/2) / multiple
}

func clamp(v, lo, hi int64) int64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (l *Loop) emit(bit int) {
	if l.delegate != nil {
		l.delegate.DigitalPhaseLockedLoopOutputBit(bit)
	}
}
