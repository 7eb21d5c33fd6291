package formats

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

func buildOricDSK(tracks int, fill func(track, sector int) []byte) []byte {
	header := make([]byte, oricDSKHeaderSize)
	copy(header, []byte(oricDSKSignature))
	header[12] = 1 // numSides

	var out bytes.Buffer
	out.Write(header)
	for tr := 0; tr < tracks; tr++ {
		for s := 1; s <= 17; s++ {
			out.Write(fill(tr, s))
		}
	}
	return out.Bytes()
}

func TestOricDSKImageLoadTrackDecodesSectors(t *testing.T) {
	data := buildOricDSK(2, func(track, sector int) []byte {
		return randomBytes(256, byte(track*17+sector))
	})
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "disk.dsk", data, 0o644)

	img, err := NewOricDSKImage(fs, "disk.dsk")
	if err != nil {
		t.Fatalf("NewOricDSKImage: %v", err)
	}
	track, err := img.LoadTrack(disk.Address{Head: 0, Position: 4})
	if err != nil {
		t.Fatalf("LoadTrack: %v", err)
	}
	decoded := DecodeTrackMFM(track.(*disk.PCMTrack))
	if len(decoded) != 17 {
		t.Fatalf("expected 17 sectors, got %d", len(decoded))
	}
	want := randomBytes(256, byte(1*17+1))
	for _, s := range decoded {
		if s.Sector == 1 && !bytes.Equal(s.Data, want) {
			t.Fatalf("sector 1 data mismatch")
		}
	}
}
