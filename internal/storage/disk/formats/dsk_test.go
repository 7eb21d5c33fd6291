package formats

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

// buildStandardDSK assembles a minimal single-track, single-side, two-sector
// standard DSK image byte-for-byte, matching the layout parseDSKTrack reads.
func buildStandardDSK(sector1, sector2 []byte) []byte {
	const trackHeaderSize = dskTrackHeaderSize + 2*dskSectorInfoSize
	trackSize := trackHeaderSize + len(sector1) + len(sector2)

	header := make([]byte, dskHeaderSize)
	copy(header, []byte(dskSignatureStandard))
	header[48] = 1 // numTracks
	header[49] = 1 // numSides
	header[50] = byte(trackSize)
	header[51] = byte(trackSize >> 8)

	track := make([]byte, trackHeaderSize)
	track[20] = 1 // sizeCode (256 bytes)
	track[21] = 2 // numSectors

	entry := func(n int, sector uint8) []byte {
		e := make([]byte, dskSectorInfoSize)
		e[0], e[1], e[2], e[3] = 0, 0, sector, 1
		e[6] = byte(len(sector1))
		e[7] = byte(len(sector1) >> 8)
		return e
	}
	copy(track[dskTrackHeaderSize:], entry(0, 1))
	copy(track[dskTrackHeaderSize+dskSectorInfoSize:], entry(1, 2))

	out := append(append([]byte{}, header...), track...)
	out = append(out, sector1...)
	out = append(out, sector2...)
	return out
}

func TestDSKImageLoadTrackDecodesSectors(t *testing.T) {
	sector1 := randomBytes(256, 10)
	sector2 := randomBytes(256, 20)
	data := buildStandardDSK(sector1, sector2)

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "disk.dsk", data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	img, err := NewDSKImage(fs, "disk.dsk")
	if err != nil {
		t.Fatalf("NewDSKImage: %v", err)
	}
	track, err := img.LoadTrack(disk.Address{Head: 0, Position: 0})
	if err != nil {
		t.Fatalf("LoadTrack: %v", err)
	}
	pcm, ok := track.(*disk.PCMTrack)
	if !ok {
		t.Fatalf("expected a *disk.PCMTrack")
	}
	decoded := DecodeTrackMFM(pcm)
	if len(decoded) != 2 {
		t.Fatalf("expected 2 sectors, got %d", len(decoded))
	}
	want := map[uint8][]byte{1: sector1, 2: sector2}
	for _, s := range decoded {
		if !bytes.Equal(s.Data, want[s.Sector]) {
			t.Fatalf("sector %d: data mismatch", s.Sector)
		}
	}
}

func TestDSKImageStoreTrackWritesBackSectorBytes(t *testing.T) {
	sector1 := randomBytes(256, 10)
	sector2 := randomBytes(256, 20)
	data := buildStandardDSK(sector1, sector2)

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "disk.dsk", data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	img, err := NewDSKImage(fs, "disk.dsk")
	if err != nil {
		t.Fatalf("NewDSKImage: %v", err)
	}

	addr := disk.Address{Head: 0, Position: 0}
	track, err := img.LoadTrack(addr)
	if err != nil {
		t.Fatalf("LoadTrack: %v", err)
	}
	pcm := track.(*disk.PCMTrack)
	decoded := DecodeTrackMFM(pcm)
	for i := range decoded {
		if decoded[i].Sector == 2 {
			decoded[i].Data = randomBytes(256, 99)
		}
	}
	rebuilt := EncodeTrackMFM(decoded, pcm.Segments[0].LengthOfABit)
	if err := img.StoreTrack(addr, rebuilt); err != nil {
		t.Fatalf("StoreTrack: %v", err)
	}

	reloaded, err := NewDSKImage(fs, "disk.dsk")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	track2, err := reloaded.LoadTrack(addr)
	if err != nil {
		t.Fatalf("LoadTrack after store: %v", err)
	}
	decoded2 := DecodeTrackMFM(track2.(*disk.PCMTrack))
	for _, s := range decoded2 {
		if s.Sector == 2 && !bytes.Equal(s.Data, randomBytes(256, 99)) {
			t.Fatalf("expected sector 2 to carry the newly stored bytes")
		}
		if s.Sector == 1 && !bytes.Equal(s.Data, sector1) {
			t.Fatalf("expected sector 1 to be untouched")
		}
	}
}
