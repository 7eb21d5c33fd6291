// Package controller implements Disk::Controller and MFMDiskController
// (§4.5): the glue joining a DigitalPhaseLockedLoop to a Drive, and the
// FM/MFM shift-register decode state machine that turns the PLL's bit
// stream into a Token sequence.
package controller

import (
	"github.com/intuitionamiga/clkcore/internal/clock"
	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/disk"
	"github.com/intuitionamiga/clkcore/internal/storage/disk/pll"
)

// Controller is the generic glue between a PLL and a Drive (§4.4's "Event
// scheduling uses TimedEventLoop" plus the PLL relationship implied by
// §4.5): it feeds drive flux events into the PLL as pulses, and owns the
// "expected bit length" the host machine sets for the current density
// (mirrors set_expected_bit_length's role in the source this was ported
// from).
type Controller struct {
	drive             *disk.Drive
	pll               *pll.Loop
	clockRate         uint32
	expectedBitLength rational.Time
}

// NewController wires pllLoop to drive: drive flux transitions call
// pllLoop.AddPulse, and RunFor advances both in lockstep.
func NewController(drive *disk.Drive, pllLoop *pll.Loop, clockRate uint32) *Controller {
	c := &Controller{drive: drive, pll: pllLoop, clockRate: clockRate}
	drive.SetEventDelegate(c)
	return c
}

// ProcessEvent implements disk.EventDelegate: a FluxTransition feeds the
// PLL a pulse; an IndexHole is purely informational at this layer (a
// higher-level controller may want it for Index token synthesis, handled
// by MFMController).
func (c *Controller) ProcessEvent(e disk.Event) {
	if e.Kind == disk.FluxTransition {
		c.pll.AddPulse()
	}
}

// ProcessWriteCompleted implements disk.EventDelegate; the base Controller
// has nothing further to do once a write lands.
func (c *Controller) ProcessWriteCompleted(disk.PCMSegment) {}

// RunFor advances drive and PLL one cycle at a time rather than in a single
// batch: drive.RunFor(1) delivers any flux event due on that exact cycle to
// ProcessEvent/AddPulse before pll.RunFor(1) advances the loop's phase past
// it, so AddPulse always sees a phase that is current as of the pulse it is
// reporting. Batching the two full-span calls instead would let a second
// transition within the same span arrive against a stale, pre-span phase and
// be misread as spurious noise rather than a genuine distinct pulse.
func (c *Controller) RunFor(cycles clock.Cycles) {
	for remaining := cycles; remaining > 0; remaining-- {
		c.drive.RunFor(1)
		c.pll.RunFor(1)
	}
}

// SetExpectedBitLength resets the PLL's clocks_per_bit estimate for a new
// density, exactly as named in §4.4's prose ("owning the expected bit
// length") and supplemented from the original's per-density PLL reset.
func (c *Controller) SetExpectedBitLength(length rational.Time) {
	c.expectedBitLength = length
	clocksPerBit := int64(length.Float64() * float64(c.clockRate))
	if clocksPerBit <= 0 {
		clocksPerBit = 1
	}
	c.pll.SetClocksPerBit(clocksPerBit)
}

// Drive returns the underlying drive, for callers that need to issue
// step/motor/head commands directly.
func (c *Controller) Drive() *disk.Drive { return c.drive }

// PLL returns the underlying phase-locked loop.
func (c *Controller) PLL() *pll.Loop { return c.pll }
