// Package clock provides strongly-typed cycle counters for the simulation
// substrate. Cycles and HalfCycles are distinct integer newtypes: converting
// between them is always explicit, so a RunFor call can never silently mix
// whole-cycle and half-cycle units.
package clock

import "math"

// Cycles counts whole machine cycles. Zero value is zero cycles.
type Cycles int32

// HalfCycles counts half-cycle units; it is twice as granular as Cycles.
type HalfCycles int32

// ToHalfCycles widens a whole-cycle count into half-cycle units.
func (c Cycles) ToHalfCycles() HalfCycles {
	return HalfCycles(c) * 2
}

// ToCyclesTruncating narrows a half-cycle count to whole cycles, discarding
// any odd remainder. Use DivideCycles when the remainder must be preserved.
func (h HalfCycles) ToCyclesTruncating() Cycles {
	return Cycles(h / 2)
}

// Add returns the saturating sum of two Cycles values.
func (c Cycles) Add(other Cycles) Cycles {
	sum := int64(c) + int64(other)
	return saturateCycles(sum)
}

// Sub returns the saturating difference of two Cycles values.
func (c Cycles) Sub(other Cycles) Cycles {
	diff := int64(c) - int64(other)
	return saturateCycles(diff)
}

func saturateCycles(v int64) Cycles {
	if v > math.MaxInt32 {
		return Cycles(math.MaxInt32)
	}
	if v < math.MinInt32 {
		return Cycles(math.MinInt32)
	}
	return Cycles(v)
}

// DivideCycles returns the number of whole n-cycle groups contained in c,
// and mutates the receiver in place to hold only the remainder. n must be
// positive. This mirrors the source's in-place "divide and retain remainder"
// convention so repeated calls never lose or double-count cycles across a
// run of run_for invocations.
func (c *Cycles) DivideCycles(n Cycles) Cycles {
	if n <= 0 {
		return 0
	}
	whole := *c / n
	*c -= whole * n
	return whole
}

// Flush drains the receiver entirely and returns everything it held.
func (c *Cycles) Flush() Cycles {
	v := *c
	*c = 0
	return v
}

// DivideCycles is the HalfCycles analogue of Cycles.DivideCycles.
func (h *HalfCycles) DivideCycles(n HalfCycles) HalfCycles {
	if n <= 0 {
		return 0
	}
	whole := *h / n
	*h -= whole * n
	return whole
}

// Flush drains the receiver entirely and returns everything it held.
func (h *HalfCycles) Flush() HalfCycles {
	v := *h
	*h = 0
	return v
}

// Add returns the saturating sum of two HalfCycles values.
func (h HalfCycles) Add(other HalfCycles) HalfCycles {
	sum := int64(h) + int64(other)
	if sum > math.MaxInt32 {
		return HalfCycles(math.MaxInt32)
	}
	if sum < math.MinInt32 {
		return HalfCycles(math.MinInt32)
	}
	return HalfCycles(sum)
}
