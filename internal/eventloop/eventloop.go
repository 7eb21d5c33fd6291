// Package eventloop implements TimedEventLoop (§4.2): the base mechanism
// that dispatches a scheduled event at exactly the right sub-cycle, with the
// sub-cycle remainder carried forward rather than rounded away. Drive and
// CRT both embed a Loop and supply a Delegate that reschedules the next
// event from inside ProcessNextEvent, mirroring video_chip.go's composition
// of a shared mutex-guarded core state struct reused by multiple
// register-facing wrappers.
package eventloop

import (
	"math/bits"

	"github.com/intuitionamiga/clkcore/internal/clock"
	"github.com/intuitionamiga/clkcore/internal/rational"
)

// Delegate receives the callback fired every time the event loop's internal
// counter crosses zero. A well-behaved Delegate calls
// SetNextEventTimeInterval again before returning, scheduling the next
// event; a Delegate that doesn't is treated as having nothing further
// scheduled for the remainder of the current RunFor call.
type Delegate interface {
	ProcessNextEvent()
}

// Loop is embedded by any component that needs sub-cycle-precision
// scheduling: Disk::Drive (rotation events) and the CRT scan generator
// (sync/blank transitions) both embed one.
type Loop struct {
	cyclesUntilEvent   int64
	subcyclesUntilEvent rational.Time
	inputClockRate      uint32
	delegate            Delegate
}

// NewLoop constructs a Loop ticking at inputClockRate, notifying delegate
// whenever a scheduled event becomes due.
func NewLoop(inputClockRate uint32, delegate Delegate) *Loop {
	if inputClockRate == 0 {
		inputClockRate = 1
	}
	return &Loop{
		subcyclesUntilEvent: rational.Zero(inputClockRate),
		inputClockRate:      inputClockRate,
		delegate:            delegate,
	}
}

// SetDelegate attaches (or replaces) the delegate notified on event
// dispatch. Useful when the embedding component can't supply itself at
// construction time (e.g. it embeds Loop before its own methods exist).
func (l *Loop) SetDelegate(delegate Delegate) { l.delegate = delegate }

// SetInputClockRate changes the clock rate subsequent scheduling computes
// against. Existing pending sub-cycle remainder is preserved in its own
// rate; only new SetNextEventTimeInterval calls use the new rate.
func (l *Loop) SetInputClockRate(rate uint32) {
	if rate == 0 {
		rate = 1
	}
	l.inputClockRate = rate
}

// SetNextEventTimeInterval schedules an event `interval` time units hence,
// accumulating the sub-cycle remainder with whatever sub-cycle remainder is
// already pending. Precondition: GetCyclesUntilNextEvent() == 0 — the
// previous event must have already been dispatched before scheduling the
// next one.
func (l *Loop) SetNextEventTimeInterval(interval rational.Time) {
	if l.cyclesUntilEvent != 0 {
		panic("eventloop: SetNextEventTimeInterval called with an event already pending")
	}

	subRate := uint64(l.subcyclesUntilEvent.ClockRate)
	subLen := uint64(l.subcyclesUntilEvent.Length)
	inputRate := uint64(l.inputClockRate)
	intervalLen := uint64(interval.Length)
	intervalRate := uint64(interval.ClockRate)
	if intervalRate == 0 {
		intervalRate = 1
	}

	numHi, numLo := bits.Mul64(subRate*inputRate, intervalLen)
	termHi, termLo := bits.Mul64(intervalRate, subLen)
	numLo, carry := bits.Add64(numLo, termLo, 0)
	numHi += termHi + carry

	denHi, denLo := bits.Mul64(intervalRate, subRate)

	if denHi != 0 {
		// denominator overflowed 64 bits (astronomically large clock
		// rates): as a pragmatic fallback, divide out only the power of
		// two common to numerator and denominator.
		g := gcd128(numHi, numLo, denHi, denLo)
		numHi, numLo = shiftRight128(numHi, numLo, g)
		denHi, denLo = shiftRight128(denHi, denLo, g)
	}

	quotHi, quotLo, remHi, remLo := divMod128(numHi, numLo, denHi, denLo)
	_ = quotHi // whole-cycle counts never approach 2^64 in practice
	l.cyclesUntilEvent += int64(quotLo)

	// subcycles = remainder / denominator, reduced by their gcd first so it
	// stays exact whenever the reduced fraction fits Time's 32-bit fields.
	remRate := denLo
	if denHi != 0 || remRate == 0 {
		remRate = 1
	}
	g, b := remLo, remRate
	for b != 0 {
		g, b = b, g%b
	}
	if g > 1 {
		remLo /= g
		remRate /= g
	}
	l.subcyclesUntilEvent = rational.New(clampToUint32(remLo), clampToUint32(remRate)).Simplify()
	_ = remHi
}

func clampToUint32(v uint64) uint32 {
	if v > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}

// gcd128/shiftRight128/divMod128 are minimal 128-bit integer helpers — the
// numerator in SetNextEventTimeInterval can exceed 64 bits for pathological
// clock-rate combinations; divide in integers rather than through a float64
// round trip.
func gcd128(ah, al, bh, bl uint64) uint {
	// Counts the trailing zero bits common to both values, i.e. the
	// exponent of their largest common power-of-two factor (not a full
	// gcd); bounded by 127 iterations.
	shift := uint(0)
	for (al|ah)&1 == 0 && (bl|bh)&1 == 0 && shift < 127 {
		ah, al = shiftRight128(ah, al, 1)
		bh, bl = shiftRight128(bh, bl, 1)
		shift++
	}
	return shift
}

func shiftRight128(hi, lo uint64, n uint) (uint64, uint64) {
	if n == 0 {
		return hi, lo
	}
	if n >= 128 {
		return 0, 0
	}
	if n >= 64 {
		return 0, hi >> (n - 64)
	}
	lo = (lo >> n) | (hi << (64 - n))
	hi = hi >> n
	return hi, lo
}

func divMod128(numHi, numLo, denHi, denLo uint64) (quotHi, quotLo, remHi, remLo uint64) {
	if denHi == 0 && numHi == 0 {
		if denLo == 0 {
			denLo = 1
		}
		quotLo = numLo / denLo
		remLo = numLo % denLo
		return 0, quotLo, 0, remLo
	}
	// Long division, bit by bit — rare path (only reached with clock rate
	// products exceeding 64 bits), correctness over speed.
	var rem [2]uint64
	var quot [2]uint64
	for bit := 127; bit >= 0; bit-- {
		rem[0], rem[1] = shiftLeftOne128(rem[0], rem[1])
		if bitAt(numHi, numLo, bit) {
			rem[1] |= 1
		}
		if ge128(rem[0], rem[1], denHi, denLo) {
			rem[0], rem[1] = sub128(rem[0], rem[1], denHi, denLo)
			quot[0], quot[1] = setBit128(quot[0], quot[1], bit)
		}
	}
	return quot[0], quot[1], rem[0], rem[1]
}

func bitAt(hi, lo uint64, bit int) bool {
	if bit >= 64 {
		return (hi>>(bit-64))&1 == 1
	}
	return (lo>>bit)&1 == 1
}

func setBit128(hi, lo uint64, bit int) (uint64, uint64) {
	if bit >= 64 {
		hi |= 1 << (bit - 64)
	} else {
		lo |= 1 << bit
	}
	return hi, lo
}

func shiftLeftOne128(hi, lo uint64) (uint64, uint64) {
	newHi := (hi << 1) | (lo >> 63)
	newLo := lo << 1
	return newHi, newLo
}

func ge128(ah, al, bh, bl uint64) bool {
	if ah != bh {
		return ah > bh
	}
	return al >= bl
}

func sub128(ah, al, bh, bl uint64) (uint64, uint64) {
	lo, borrow := bits.Sub64(al, bl, 0)
	hi, _ := bits.Sub64(ah, bh, borrow)
	return hi, lo
}

// RunFor advances internal time by cycles, calling the delegate's
// ProcessNextEvent each time the counter crosses zero; any sub-cycle
// remainder is carried forward to the next call.
func (l *Loop) RunFor(cycles clock.Cycles) {
	remaining := int64(cycles)
	for remaining > 0 {
		if l.cyclesUntilEvent <= 0 {
			if l.delegate == nil {
				return
			}
			l.delegate.ProcessNextEvent()
			if l.cyclesUntilEvent <= 0 {
				// Delegate did not reschedule; nothing further is due
				// this call, but the full input must still be reported
				// as consumed (§8: "sum of cycles advanced equals sum
				// of inputs").
				return
			}
			continue
		}
		step := remaining
		if l.cyclesUntilEvent < step {
			step = l.cyclesUntilEvent
		}
		l.cyclesUntilEvent -= step
		remaining -= step
		if l.cyclesUntilEvent == 0 && l.delegate != nil {
			l.delegate.ProcessNextEvent()
			if l.cyclesUntilEvent <= 0 {
				// Not rescheduled: nothing further is due this call.
				return
			}
		}
	}
}

// ResetTimer clears any pending event and sub-cycle remainder.
func (l *Loop) ResetTimer() {
	l.cyclesUntilEvent = 0
	l.subcyclesUntilEvent = rational.Zero(l.subcyclesUntilEvent.ClockRate)
}

// JumpToNextEvent immediately dispatches the pending event, regardless of
// how many cycles remain until it was due.
func (l *Loop) JumpToNextEvent() {
	l.cyclesUntilEvent = 0
	if l.delegate != nil {
		l.delegate.ProcessNextEvent()
	}
}

// GetCyclesUntilNextEvent returns the non-negative number of cycles
// remaining before the next scheduled event fires.
func (l *Loop) GetCyclesUntilNextEvent() clock.Cycles {
	return clock.Cycles(l.cyclesUntilEvent)
}
