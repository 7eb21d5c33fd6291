// Package bus defines the uniform conventions every bus-attached component
// follows (§6, §4): a RunFor(cycles) entry point, a PreferredClocking
// query for the sleep protocol, and — for the three CPU families this
// substrate treats as opaque collaborators (6502, Z80, 68000) — a
// run_for/perform_bus_operation pairing. No instruction decoding lives
// here: §1 places "instruction-level CPU semantics" out of scope, and
// treats processor cores as "opaque components exposing a run_for(cycles)
// entry point and a bus-operation callback."
//
// Grounded on machine_bus.go's Bus32 interface shape (a small interface
// implemented by one concrete bus, with register reads/writes as the only
// surface) and cpu_z80_runner.go's convention of a thin Runner wrapping an
// opaque core — only the wrapper shape survives here, not an opcode table.
package bus

import (
	"github.com/intuitionamiga/clkcore/internal/clock"
	"github.com/intuitionamiga/clkcore/internal/hint"
)

// Component is implemented by every bus-attached device: video chips,
// disk/tape controllers, PSGs wired into the AsyncTaskQueue, and so on.
type Component interface {
	// RunFor advances the component by exactly cycles worth of simulated
	// time. Implementations must consume the whole of cycles before
	// returning — see Cycles.DivideCycles for the carry-remainder idiom
	// used to avoid rounding loss.
	RunFor(cycles clock.Cycles)
	// PreferredClocking reports how eagerly this component needs to be
	// advanced, per the ClockingHint protocol (§4.11).
	PreferredClocking() hint.Preference
}

// Register is the minimal memory-mapped register surface (§6): "component
// interface (bus devices): set_register(address, value), get_register
// (address) -> value".
type Register interface {
	SetRegister(address uint32, value uint32)
	GetRegister(address uint32) uint32
}

// Operation identifies the kind of bus cycle a CPU core is performing when
// it calls back into its host, mirroring the three processor families'
// distinct bus semantics (a Z80 IN/OUT cycle differs from a 6502 memory
// cycle, which differs from a 68000 bus cycle with its own size/AS/DS
// strobes) while giving the host one small enum to switch on per family.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpReadOpcode
	OpIORead
	OpIOWrite
)

// BusOperation6502 is called by a CPU6502 core for every bus cycle. value
// is read from (OpRead/OpReadOpcode) or written to (OpWrite) by the host;
// the returned wait-state count stretches the CPU core's next cycle.
type BusOperation6502 func(op Operation, address uint16, value *uint8) (waitStates clock.Cycles)

// CPU6502 is the opaque 6502-family core contract (§6).
type CPU6502 interface {
	Component
	SetBusOperation(BusOperation6502)
}

// BusOperationZ80 is the Z80-family analogue, with its distinct IO address
// space reflected in OpIORead/OpIOWrite.
type BusOperationZ80 func(op Operation, address uint16, value *uint8) (waitStates clock.Cycles)

// CPUZ80 is the opaque Z80-family core contract (§6).
type CPUZ80 interface {
	Component
	SetBusOperation(BusOperationZ80)
}

// BusOperation68000 is the 68000-family analogue: a 32-bit address space,
// variable operand width carried by valueWidth (1, 2, or 4 bytes).
type BusOperation68000 func(op Operation, address uint32, valueWidth int, value *uint32) (waitStates clock.Cycles)

// CPU68000 is the opaque 68000-family core contract (§6).
type CPU68000 interface {
	Component
	SetBusOperation(BusOperation68000)
}
