// Package tape implements the abstract Tape/Pulse model and the three-stage
// Pulse→Wave→Symbol→Byte parser framework of §4.8: a Tape is a lazy stream
// of polarity+duration pulses; a Parser classifies pulses into waves, waves
// into symbols, and symbols into bytes, one format-specific state machine
// per encoding.
//
// The rolling-buffer "match against a fixed pattern, drop the matched
// elements" shape mirrors
// ahx_parser.go's chunked-stream parsing convention (sequential reads with
// explicit end-of-data handling), kept only as a style precedent since AHX
// itself (Amiga module music) is out of scope here.
package tape

import "github.com/intuitionamiga/clkcore/internal/rational"

// PulseKind distinguishes a tape pulse's polarity (§3).
type PulseKind int

const (
	PulseHigh PulseKind = iota
	PulseLow
	PulseZero
)

func (k PulseKind) String() string {
	switch k {
	case PulseHigh:
		return "High"
	case PulseLow:
		return "Low"
	case PulseZero:
		return "Zero"
	default:
		return "PulseKind(?)"
	}
}

// Pulse is one tape signal of a single polarity lasting Length (§3, §4.8).
type Pulse struct {
	Kind   PulseKind
	Length rational.Time
}

// Tape is the abstract lazy pulse source every format parser reads from
// (§4.8). IsAtEnd lets a parser treat exhaustion as an error condition
// (§4.8: "parsers treat EOF as an error flag") rather than panicking.
type Tape interface {
	NextPulse() Pulse
	IsAtEnd() bool
	// Reset rewinds to the first pulse, used by tests and by re-scan on
	// parse-error recovery.
	Reset()
}

// SlicePulseTape is a Tape backed by a fixed, pre-computed pulse slice —
// the concrete form every format's on-disk decoder produces (a CSW/UEF/CAS
// file is read once into a pulse list, then replayed through this type).
type SlicePulseTape struct {
	Pulses []Pulse
	cursor int
}

// NewSlicePulseTape wraps pulses as a replayable Tape.
func NewSlicePulseTape(pulses []Pulse) *SlicePulseTape {
	return &SlicePulseTape{Pulses: pulses}
}

func (t *SlicePulseTape) NextPulse() Pulse {
	if t.cursor >= len(t.Pulses) {
		return Pulse{Kind: PulseZero, Length: rational.Zero(1)}
	}
	p := t.Pulses[t.cursor]
	t.cursor++
	return p
}

func (t *SlicePulseTape) IsAtEnd() bool { return t.cursor >= len(t.Pulses) }

func (t *SlicePulseTape) Reset() { t.cursor = 0 }

// Remaining reports how many pulses are left unread, for callers (such as
// §8 scenario 2) that need to verify a decompressed pulse count.
func (t *SlicePulseTape) Remaining() int { return len(t.Pulses) - t.cursor }
