package formats

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/storage/disk"
	"github.com/intuitionamiga/clkcore/internal/storage/disk/gcr"
)

func TestMacImageLoadTrackGCREncodesZoneSectorCount(t *testing.T) {
	sectorsPerTrack := gcr.SectorsPerTrackZone(0)
	var data []byte
	want := make([][]byte, sectorsPerTrack)
	for s := 0; s < sectorsPerTrack; s++ {
		sector := randomBytes(512, byte(s+1))
		want[s] = sector
		data = append(data, sector...)
	}

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "disk.image", data, 0o644)

	img, err := NewMacImage(fs, "disk.image")
	if err != nil {
		t.Fatalf("NewMacImage: %v", err)
	}
	track, err := img.LoadTrack(disk.Address{Head: 0, Position: 0})
	if err != nil {
		t.Fatalf("LoadTrack: %v", err)
	}
	pcm := track.(*disk.PCMTrack)
	if len(pcm.Segments) != sectorsPerTrack {
		t.Fatalf("expected %d sector segments, got %d", sectorsPerTrack, len(pcm.Segments))
	}

	decoded := decodeMacTrack(pcm, sectorsPerTrack)
	for i, sector := range decoded {
		if sector == nil {
			t.Fatalf("sector %d failed to decode", i)
		}
		if !bytes.Equal(sector, want[i]) {
			t.Fatalf("sector %d: data mismatch after GCR round trip", i)
		}
	}
}

func TestMacImageStoreTrackWritesDecodedBytesBack(t *testing.T) {
	sectorsPerTrack := gcr.SectorsPerTrackZone(0)
	data := make([]byte, sectorsPerTrack*macSectorSize)

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "disk.image", data, 0o644)

	img, err := NewMacImage(fs, "disk.image")
	if err != nil {
		t.Fatalf("NewMacImage: %v", err)
	}
	addr := disk.Address{Head: 0, Position: 0}
	track, err := img.LoadTrack(addr)
	if err != nil {
		t.Fatalf("LoadTrack: %v", err)
	}

	if err := img.StoreTrack(addr, track); err != nil {
		t.Fatalf("StoreTrack: %v", err)
	}

	reloaded, err := NewMacImage(fs, "disk.image")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	track2, _ := reloaded.LoadTrack(addr)
	decoded := decodeMacTrack(track2.(*disk.PCMTrack), sectorsPerTrack)
	for i, sector := range decoded {
		if sector == nil || !bytes.Equal(sector, make([]byte, macSectorSize)) {
			t.Fatalf("sector %d: expected all-zero round trip, got %x", i, sector)
		}
	}
}
