// Package rational implements the exact-rational Time type used throughout
// the storage pipeline. Disk rotation and tape pulse durations are tracked
// as fractions rather than floating point so that timing stays exact across
// many millions of simulated cycles — a demo observing a mid-scanline
// register write, or a copy-protection scheme measuring flux-transition
// intervals, cannot tolerate the drift floating point would accumulate.
package rational

import "math/bits"

// Time is a rational number of time units: Length / ClockRate. ClockRate is
// always strictly positive; Length may be zero but never negative in the
// values this package hands back (subtraction that would go negative is the
// caller's bug, not something this type silently repairs).
type Time struct {
	Length    uint32
	ClockRate uint32
}

// New constructs a Time, panicking if clockRate is zero — a zero clock rate
// is a construction-time programming error, not a runtime condition to
// recover from.
func New(length, clockRate uint32) Time {
	if clockRate == 0 {
		panic("rational: zero clock rate")
	}
	return Time{Length: length, ClockRate: clockRate}
}

// Zero returns the zero duration at the given clock rate.
func Zero(clockRate uint32) Time {
	return New(0, clockRate)
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func lcm(a, b uint64) uint64 {
	return a / gcd(a, b) * b
}

// Simplify reduces Length/ClockRate by their gcd. It is optional — callers
// invoke it when ClockRate approaches the uint32 range, per §4.1.
func (t Time) Simplify() Time {
	if t.Length == 0 {
		return Time{Length: 0, ClockRate: t.ClockRate}
	}
	g := gcd(uint64(t.Length), uint64(t.ClockRate))
	if g <= 1 {
		return t
	}
	return Time{Length: uint32(uint64(t.Length) / g), ClockRate: uint32(uint64(t.ClockRate) / g)}
}

// simplifyWide reduces a 64-bit-numerator/64-bit-denominator pair down to
// fit in uint32 fields, preferring an exact gcd reduction and falling back
// to a precision-losing right-shift only if gcd reduction isn't enough.
func simplifyWide(numerator, denominator uint64) Time {
	if numerator == 0 {
		return Time{Length: 0, ClockRate: clampRate(denominator)}
	}
	g := gcd(numerator, denominator)
	numerator /= g
	denominator /= g
	for numerator > uint64(^uint32(0)) || denominator > uint64(^uint32(0)) {
		numerator >>= 1
		denominator >>= 1
		if denominator == 0 {
			denominator = 1
		}
	}
	return Time{Length: uint32(numerator), ClockRate: clampRate(denominator)}
}

func clampRate(r uint64) uint32 {
	if r == 0 {
		return 1
	}
	if r > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(r)
}

// Add returns the sum of t and other. The result's ClockRate is the lcm of
// the two inputs' clock rates, per §3's invariant.
func (t Time) Add(other Time) Time {
	rate := lcm(uint64(t.ClockRate), uint64(other.ClockRate))
	numerator := uint64(t.Length)*(rate/uint64(t.ClockRate)) + uint64(other.Length)*(rate/uint64(other.ClockRate))
	return simplifyWide(numerator, rate)
}

// Sub returns t minus other. Panics if the result would be negative — exact
// rational subtraction has no representable negative Time in this model;
// callers must check ordering first via Less/Compare.
func (t Time) Sub(other Time) Time {
	rate := lcm(uint64(t.ClockRate), uint64(other.ClockRate))
	a := uint64(t.Length) * (rate / uint64(t.ClockRate))
	b := uint64(other.Length) * (rate / uint64(other.ClockRate))
	if b > a {
		panic("rational: Time.Sub would underflow")
	}
	return simplifyWide(a-b, rate)
}

// MulInt returns t multiplied by an integer scalar.
func (t Time) MulInt(n uint32) Time {
	return simplifyWide(uint64(t.Length)*uint64(n), uint64(t.ClockRate))
}

// Mul returns the product of two Time values: (a.Length*b.Length) /
// (a.ClockRate*b.ClockRate).
func (t Time) Mul(other Time) Time {
	return simplifyWide(uint64(t.Length)*uint64(other.Length), uint64(t.ClockRate)*uint64(other.ClockRate))
}

// crossProducts computes t.Length*other.ClockRate and other.Length*t.ClockRate
// as 128-bit-safe pairs for comparison, matching the original CLK source's
// Time::operator< (cross-multiply rather than reduce to a common
// denominator first, avoiding an intermediate overflow path).
func crossProducts(t, other Time) (hi1, lo1, hi2, lo2 uint64) {
	hi1, lo1 = bits.Mul64(uint64(t.Length), uint64(other.ClockRate))
	hi2, lo2 = bits.Mul64(uint64(other.Length), uint64(t.ClockRate))
	return
}

// Compare returns -1, 0, or 1 as t is less than, equal to, or greater than
// other, using exact cross-multiplication (never floating point).
func (t Time) Compare(other Time) int {
	hi1, lo1, hi2, lo2 := crossProducts(t, other)
	if hi1 != hi2 {
		if hi1 < hi2 {
			return -1
		}
		return 1
	}
	if lo1 != lo2 {
		if lo1 < lo2 {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether t is strictly less than other.
func (t Time) Less(other Time) bool { return t.Compare(other) < 0 }

// Equal reports whether t and other denote the same exact duration, even if
// expressed over different clock rates (e.g. 1/2 == 2/4).
func (t Time) Equal(other Time) bool { return t.Compare(other) == 0 }

// Float64 converts to a float64 approximation, for logging/diagnostics
// only — never for comparisons, which must stay exact (see Compare).
func (t Time) Float64() float64 {
	return float64(t.Length) / float64(t.ClockRate)
}

// IsZero reports whether the duration is exactly zero.
func (t Time) IsZero() bool { return t.Length == 0 }
