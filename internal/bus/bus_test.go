package bus

import (
	"testing"

	"github.com/intuitionamiga/clkcore/internal/clock"
	"github.com/intuitionamiga/clkcore/internal/hint"
)

// fakeCPU6502 is a minimal CPU6502 implementation used to confirm the
// interface shapes compose the way callers expect: a host wires a
// BusOperation6502, the core calls it back during RunFor.
type fakeCPU6502 struct {
	op        BusOperation6502
	ranCycles clock.Cycles
}

func (c *fakeCPU6502) RunFor(cycles clock.Cycles) {
	c.ranCycles += cycles
	if c.op != nil {
		var v uint8 = 0x42
		c.op(OpRead, 0x1000, &v)
	}
}

func (c *fakeCPU6502) PreferredClocking() hint.Preference { return hint.RealTime }

func (c *fakeCPU6502) SetBusOperation(op BusOperation6502) { c.op = op }

func TestCPU6502BusOperationCallback(t *testing.T) {
	var cpu CPU6502 = &fakeCPU6502{}
	var seenAddress uint16
	var seenValue uint8
	cpu.SetBusOperation(func(op Operation, address uint16, value *uint8) clock.Cycles {
		seenAddress = address
		seenValue = *value
		return 0
	})
	cpu.RunFor(4)

	if seenAddress != 0x1000 {
		t.Fatalf("expected address 0x1000, got %#x", seenAddress)
	}
	if seenValue != 0x42 {
		t.Fatalf("expected value 0x42, got %#x", seenValue)
	}
}

func TestComponentPreferredClockingSurfacesThroughInterface(t *testing.T) {
	var c Component = &fakeCPU6502{}
	if c.PreferredClocking() != hint.RealTime {
		t.Fatalf("expected RealTime preference")
	}
}
