package tape

import "github.com/intuitionamiga/clkcore/internal/rational"

// WaveKind classifies a pulse by duration bucket: short, long, or
// unrecognised (§4.8 stage 1, "Pulse → Wave").
type WaveKind int

const (
	WaveShort WaveKind = iota
	WaveLong
	WaveUnrecognised
)

// WaveClassifier buckets pulses into short/long/unrecognised using a
// per-format set of length thresholds (§4.8: "based on pulse length buckets
// set per format").
type WaveClassifier struct {
	ShortMin, ShortMax rational.Time
	LongMin, LongMax   rational.Time
}

// Classify buckets a pulse length into a WaveKind.
func (c WaveClassifier) Classify(length rational.Time) WaveKind {
	if !length.Less(c.ShortMin) && !c.ShortMax.Less(length) {
		return WaveShort
	}
	if !length.Less(c.LongMin) && !c.LongMax.Less(length) {
		return WaveLong
	}
	return WaveUnrecognised
}

// Wave is a pulse after length-bucket classification, stage 1's output and
// stage 2's input (§4.8).
type Wave struct {
	Kind   WaveKind
	Pulse  Pulse
}

// WaveStream pulls pulses from a Tape and classifies each with classifier,
// one at a time — the lazy "Pulse → Wave" stage.
type WaveStream struct {
	tape       Tape
	classifier WaveClassifier
}

// NewWaveStream builds a WaveStream reading from tape.
func NewWaveStream(tape Tape, classifier WaveClassifier) *WaveStream {
	return &WaveStream{tape: tape, classifier: classifier}
}

// Next returns the next classified wave, or ok=false at tape end.
func (s *WaveStream) Next() (Wave, bool) {
	if s.tape.IsAtEnd() {
		return Wave{}, false
	}
	p := s.tape.NextPulse()
	return Wave{Kind: s.classifier.Classify(p.Length), Pulse: p}, true
}

// SymbolMatcher recognises a fixed wave pattern against a rolling buffer
// and reports how many leading waves it consumed, per §4.8 stage 2 ("a
// rolling buffer of waves matched against per-format patterns; on match,
// emit symbol and drop the matched waves").
type SymbolMatcher interface {
	// Match inspects buf (the waves seen so far, oldest first) and either
	// reports a recognised symbol and how many waves it consumes, or
	// reports matched=false meaning "need more waves" (when len(buf) is
	// still shorter than the matcher's longest pattern) or a permanent
	// mismatch (handled by the caller discarding the head wave).
	Match(buf []Wave) (symbol int, consumed int, matched bool)
	// MaxPattern is the longest pattern this matcher ever looks at, so the
	// SymbolStream knows when "not yet matched" really means "never will".
	MaxPattern() int
}

// SymbolStream buffers waves and repeatedly asks a SymbolMatcher to
// recognise the leading run, per §4.8 stage 2.
type SymbolStream struct {
	waves   *WaveStream
	matcher SymbolMatcher
	buf     []Wave
	atEnd   bool
}

// NewSymbolStream builds a SymbolStream reading waves from waves and
// matching them with matcher.
func NewSymbolStream(waves *WaveStream, matcher SymbolMatcher) *SymbolStream {
	return &SymbolStream{waves: waves, matcher: matcher}
}

// Next returns the next recognised symbol, or ok=false once no more waves
// are available and the buffer cannot match further.
func (s *SymbolStream) Next() (symbol int, ok bool) {
	for {
		for len(s.buf) < s.matcher.MaxPattern() && !s.atEnd {
			w, have := s.waves.Next()
			if !have {
				s.atEnd = true
				break
			}
			s.buf = append(s.buf, w)
		}
		if len(s.buf) == 0 {
			return 0, false
		}
		sym, consumed, matched := s.matcher.Match(s.buf)
		if matched {
			if consumed <= 0 {
				consumed = 1
			}
			s.buf = s.buf[consumed:]
			return sym, true
		}
		if s.atEnd && len(s.buf) < s.matcher.MaxPattern() {
			// Buffer will never grow further; the format's matcher must
			// decide on what it has. Drop one wave to make progress,
			// matching §4.8's "parsers treat EOF as an error flag" — the
			// caller's byte-level stage will see a short/garbled symbol.
			s.buf = s.buf[1:]
			continue
		}
		// A full buffer that still doesn't match never will: discard the
		// head wave and try again from the next one.
		if len(s.buf) >= s.matcher.MaxPattern() {
			s.buf = s.buf[1:]
			continue
		}
		return 0, false
	}
}
