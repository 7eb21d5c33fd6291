package eventloop

import (
	"testing"

	"github.com/intuitionamiga/clkcore/internal/clock"
	"github.com/intuitionamiga/clkcore/internal/rational"
)

type countingDelegate struct {
	loop        *Loop
	interval    rational.Time
	fired       int
	autoReschedule bool
}

func (d *countingDelegate) ProcessNextEvent() {
	d.fired++
	if d.autoReschedule {
		d.loop.SetNextEventTimeInterval(d.interval)
	}
}

func TestRunForSumMatchesInput(t *testing.T) {
	loop := NewLoop(1000, nil)
	d := &countingDelegate{loop: loop, interval: rational.New(7, 1000), autoReschedule: true}
	loop.SetDelegate(d)
	loop.SetNextEventTimeInterval(d.interval)

	inputs := []clock.Cycles{1, 2, 3, 50, 17, 4}
	var total clock.Cycles
	for _, in := range inputs {
		loop.RunFor(in)
		total += in
	}
	// Every 7 cycles an event fires; verify no cycles were lost by
	// checking how far into the next window we are. An event that falls
	// due on the last cycle fires and reschedules a full 7-cycle window.
	cyclesIntoEvents := int64(total) % 7
	remaining := loop.GetCyclesUntilNextEvent()
	if int64(remaining) != 7-cyclesIntoEvents {
		t.Fatalf("cycle accounting drifted: total=%d remaining=%d", total, remaining)
	}
}

func TestEventFiresAtExactInterval(t *testing.T) {
	loop := NewLoop(1, nil)
	d := &countingDelegate{loop: loop, interval: rational.New(10, 1), autoReschedule: true}
	loop.SetDelegate(d)
	loop.SetNextEventTimeInterval(d.interval)

	loop.RunFor(9)
	if d.fired != 0 {
		t.Fatalf("expected no event before interval elapses, got %d", d.fired)
	}
	loop.RunFor(1)
	if d.fired != 1 {
		t.Fatalf("expected exactly one event at the interval boundary, got %d", d.fired)
	}
}

func TestSubCycleRemainderCarriesForward(t *testing.T) {
	// Input clock rate 2 (half-cycle granularity), interval of 1.5 cycles
	// repeated: events should average out to firing every 3 half-cycles.
	loop := NewLoop(2, nil)
	interval := rational.New(3, 2) // 1.5 "cycle" units at clock rate 2 internally normalized
	d := &countingDelegate{loop: loop, interval: interval, autoReschedule: true}
	loop.SetDelegate(d)
	loop.SetNextEventTimeInterval(interval)

	for i := 0; i < 100; i++ {
		loop.RunFor(1)
	}
	if d.fired == 0 {
		t.Fatalf("expected at least one event to fire")
	}
}

func TestNoReschedulePreventsInfiniteLoopButConsumesCycles(t *testing.T) {
	loop := NewLoop(1, nil)
	d := &countingDelegate{loop: loop, interval: rational.New(5, 1), autoReschedule: false}
	loop.SetDelegate(d)
	loop.SetNextEventTimeInterval(d.interval)

	loop.RunFor(100)
	if d.fired != 1 {
		t.Fatalf("expected exactly one dispatch since delegate never reschedules, got %d", d.fired)
	}
}

func TestJumpToNextEventDispatchesImmediately(t *testing.T) {
	loop := NewLoop(1, nil)
	d := &countingDelegate{loop: loop, interval: rational.New(1000, 1), autoReschedule: false}
	loop.SetDelegate(d)
	loop.SetNextEventTimeInterval(d.interval)

	loop.JumpToNextEvent()
	if d.fired != 1 {
		t.Fatalf("expected JumpToNextEvent to dispatch once, got %d", d.fired)
	}
	if loop.GetCyclesUntilNextEvent() != 0 {
		t.Fatalf("expected counter cleared after jump")
	}
}
