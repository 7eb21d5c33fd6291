package formats

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

func buildG64(raw []byte) []byte {
	const numHalfTracks = 2
	header := make([]byte, g64HeaderSize)
	copy(header, []byte(g64Signature))
	header[9] = numHalfTracks
	header[10] = 0xFF
	header[11] = 0x00 // maxTrackSize = 255, plenty for the test payload

	offsets := make([]byte, numHalfTracks*g64OffsetEntry)
	trackStart := uint32(g64HeaderSize + len(offsets) + numHalfTracks*g64SpeedEntry)
	offsets[0] = byte(trackStart)
	offsets[1] = byte(trackStart >> 8)
	offsets[2] = byte(trackStart >> 16)
	offsets[3] = byte(trackStart >> 24)

	speeds := make([]byte, numHalfTracks*g64SpeedEntry)
	speeds[0] = 3 // outermost zone

	var out bytes.Buffer
	out.Write(header)
	out.Write(offsets)
	out.Write(speeds)
	out.WriteByte(byte(len(raw)))
	out.WriteByte(byte(len(raw) >> 8))
	out.Write(raw)
	return out.Bytes()
}

func TestG64ImageLoadTrackReturnsRawBitstream(t *testing.T) {
	raw := []byte{0xAA, 0x55, 0xFF, 0x00}
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "disk.g64", buildG64(raw), 0o644)

	img, err := NewG64Image(fs, "disk.g64")
	if err != nil {
		t.Fatalf("NewG64Image: %v", err)
	}
	track, err := img.LoadTrack(disk.Address{Head: 0, Position: 0})
	if err != nil {
		t.Fatalf("LoadTrack: %v", err)
	}
	pcm := track.(*disk.PCMTrack)
	if pcm.Segments[0].NumberOfBits != uint32(len(raw))*8 {
		t.Fatalf("expected %d bits, got %d", len(raw)*8, pcm.Segments[0].NumberOfBits)
	}
	if !bytes.Equal(pcm.Segments[0].Data, raw) {
		t.Fatalf("bitstream bytes mismatch: got %x want %x", pcm.Segments[0].Data, raw)
	}
}

func TestG64ImageEmptyHalfTrackYieldsSynthesizedIndexTrack(t *testing.T) {
	raw := []byte{0x11}
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "disk.g64", buildG64(raw), 0o644)

	img, err := NewG64Image(fs, "disk.g64")
	if err != nil {
		t.Fatalf("NewG64Image: %v", err)
	}
	// Half-track index 1 has a zero offset entry in the fixture.
	track, err := img.LoadTrack(disk.Address{Head: 0, Position: 2})
	if err != nil {
		t.Fatalf("LoadTrack: %v", err)
	}
	ev := track.NextEvent()
	if ev.Kind != disk.IndexHole {
		t.Fatalf("expected a synthesized index-only track")
	}
}
