package formats

import (
	"testing"

	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/tape"
)

func TestSplitCASFindsDelimitedFiles(t *testing.T) {
	sig := CASHeaderSignature[:]
	var data []byte
	data = append(data, sig...)
	data = append(data, []byte("FOO   ")...)
	data = append(data, 0xD0) // binary marker
	data = append(data, []byte{1, 2, 3}...)
	data = append(data, sig...)
	data = append(data, []byte("BAR   ")...)
	data = append(data, 0xD3) // BASIC marker
	data = append(data, []byte{4, 5}...)

	files := SplitCAS(data)
	if len(files) != 2 {
		t.Fatalf("SplitCAS found %d files, want 2", len(files))
	}
	if files[0].Name != "FOO" || files[0].Type != CASBinary {
		t.Fatalf("file 0 = %+v, want Name=FOO Type=CASBinary", files[0])
	}
	if files[1].Name != "BAR" || files[1].Type != CASBasic {
		t.Fatalf("file 1 = %+v, want Name=BAR Type=CASBasic", files[1])
	}
}

func TestSplitCASReturnsNoFilesWithoutSignature(t *testing.T) {
	if files := SplitCAS([]byte{1, 2, 3, 4}); files != nil {
		t.Fatalf("expected nil, got %+v", files)
	}
}

func TestCASPulseParserDecodesAFramedByte(t *testing.T) {
	lowTone := rational.New(1, 1200)
	highTone := rational.New(1, 2400)

	// value 0x02 = 0b00000010, LSB-first data bits: 0,1,0,0,0,0,0,0.
	bits := []int{0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 1}
	pulses := make([]tape.Pulse, len(bits))
	for i, b := range bits {
		length := lowTone
		if b == 1 {
			length = highTone
		}
		pulses[i] = tape.Pulse{Kind: tape.PulseHigh, Length: length}
	}

	tp := tape.NewSlicePulseTape(pulses)
	parser := NewCASPulseParser(tp, lowTone, highTone)

	value, ok := parser.GetNextByte()
	if !ok {
		t.Fatalf("GetNextByte reported a framing error on a well-formed frame")
	}
	if value != 0x02 {
		t.Fatalf("decoded value = 0x%02X, want 0x02", value)
	}
	if parser.HasError() {
		t.Fatalf("HasError() true after a successful decode")
	}
}
