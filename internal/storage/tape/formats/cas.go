package formats

import (
	"bytes"

	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

// CASHeaderSignature is the 8-byte sync sequence that delimits files within
// an MSX CAS image (§4.8: "CAS (MSX: 8-byte header signature
// 1f a6 de ba cc 13 7d 74 delimits files of type CSAVE/BSAVE/ASCII)").
var CASHeaderSignature = [8]byte{0x1f, 0xa6, 0xde, 0xba, 0xcc, 0x13, 0x7d, 0x74}

// CASFileType distinguishes the three MSX BASIC tape file kinds.
type CASFileType int

const (
	CASUnknown CASFileType = iota
	CASBinary              // BSAVE
	CASBasic               // CSAVE (tokenized BASIC)
	CASASCII
)

// CASFile is one delimited region of an MSX CAS image.
type CASFile struct {
	Type CASFileType
	Name string // 6-byte padded filename, trimmed
	Data []byte
}

// SplitCAS scans a raw CAS byte stream (already demodulated from its
// underlying 1200/2400 baud FSK encoding into bytes — see DecodeCASPulses)
// for header-signature-delimited files. MSX CAS stores three kinds of
// content distinguished by the byte immediately following the header: the
// loader conventionally inspects the filename's extension/first data byte,
// which this implementation mirrors by checking the first data byte after
// the filename block (0xD0 binary, 0xD3 BASIC, 0xEA ASCII — the standard
// MSX-BASIC SAVE/CSAVE header identifiers).
func SplitCAS(data []byte) []CASFile {
	var files []CASFile
	sig := CASHeaderSignature[:]

	positions := findAll(data, sig)
	for i, pos := range positions {
		start := pos + len(sig)
		end := len(data)
		if i+1 < len(positions) {
			end = positions[i+1]
		}
		if start >= end {
			continue
		}
		region := data[start:end]

		name := ""
		if len(region) >= 6 {
			name = string(bytes.TrimRight(region[:6], " \x00"))
		}

		typ := CASUnknown
		if len(region) > 6 {
			switch region[6] {
			case 0xD0:
				typ = CASBinary
			case 0xD3:
				typ = CASBasic
			case 0xEA:
				typ = CASASCII
			}
		}

		files = append(files, CASFile{Type: typ, Name: name, Data: region})
	}
	return files
}

func findAll(haystack, needle []byte) []int {
	var positions []int
	offset := 0
	for {
		idx := bytes.Index(haystack[offset:], needle)
		if idx < 0 {
			return positions
		}
		positions = append(positions, offset+idx)
		offset += idx + len(needle)
	}
}

// CASPulseParser decodes the FSK-modulated pulse stream an MSX cassette
// interface produces into bytes, ahead of SplitCAS locating file
// boundaries in the assembled byte stream: 1 start bit, 8 data bits
// (LSB-first), 2 stop bits, no parity, at the format's standard 1200 baud
// (long-header files use 2400 baud for data, distinguished by cycle
// count per bit cell — both are representable via the same
// low/high-tone classifier as Oric).
type CASPulseParser struct {
	symbols *tape.SymbolStream
	shifter *tape.ByteShifter
	err     bool
}

type casMatcher struct{}

func (casMatcher) MaxPattern() int { return 1 }

func (casMatcher) Match(buf []tape.Wave) (symbol int, consumed int, matched bool) {
	if len(buf) == 0 {
		return 0, 0, false
	}
	if buf[0].Kind == tape.WaveShort {
		return 1, 1, true
	}
	return 0, 1, true
}

// NewCASPulseParser builds a parser over the tone-classified pulse stream.
func NewCASPulseParser(t tape.Tape, lowTone, highTone rational.Time) *CASPulseParser {
	classifier := tape.WaveClassifier{
		ShortMin: highTone.Mul(rational.New(9, 10)),
		ShortMax: highTone.Mul(rational.New(11, 10)),
		LongMin:  lowTone.Mul(rational.New(9, 10)),
		LongMax:  lowTone.Mul(rational.New(11, 10)),
	}
	waves := tape.NewWaveStream(t, classifier)
	return &CASPulseParser{
		symbols: tape.NewSymbolStream(waves, casMatcher{}),
		shifter: tape.NewByteShifterStopBits(false, false, 2),
	}
}

// GetNextByte decodes the next 11-cell frame (start + 8 data + 2 stop).
func (p *CASPulseParser) GetNextByte() (value uint8, ok bool) {
	p.shifter.Reset()
	for !p.shifter.Ready() {
		sym, have := p.symbols.Next()
		if !have {
			p.err = true
			return 0, false
		}
		p.shifter.PushBit(sym)
	}
	v, frameOK := p.shifter.Take()
	if !frameOK {
		p.err = true
	}
	return v, frameOK
}

// HasError reports whether a parse error has been latched.
func (p *CASPulseParser) HasError() bool { return p.err }
