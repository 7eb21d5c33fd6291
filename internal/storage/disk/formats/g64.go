package formats

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

const (
	g64Signature    = "GCR-1541"
	g64HeaderSize   = 12
	g64OffsetEntry  = 4
	g64SpeedEntry   = 4
	g64ClockRate    = 1000000
)

// g64ZoneCyclesPerBit is the bit-cell length of each of the Commodore
// 1541's four speed zones, indexed by zone number: tracks 1-17 (outermost,
// fastest) read at zone 3, 18-24 at zone 2, 25-30 at zone 1, 31+
// (innermost, slowest) at zone 0 (§6's "Commodore G64... raw
// pre-GCR-encoded bitstream" entry, supplemented from the drive's
// documented zone table since G64 stores the per-track speed explicitly
// rather than deriving it from track number).
var g64ZoneCyclesPerBit = [4]uint32{17, 16, 15, 14}

// G64Image implements disk.ImageSource for Commodore's G64 format: unlike
// every other loader in this package, G64 already stores the final
// GCR-encoded flux bitstream per track (no 6-and-2 or MFM/FM re-encoding
// happens here), so LoadTrack/StoreTrack are near-verbatim bit copies.
type G64Image struct {
	fs           afero.Fs
	path         string
	numHalfTracks int
	maxTrackSize int
	offsets      []uint32
	speedZones   []uint32
}

// NewG64Image opens a G64 disk image from fs.
func NewG64Image(fs afero.Fs, path string) (*G64Image, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}
	if len(data) < g64HeaderSize || !bytes.HasPrefix(data, []byte(g64Signature)) {
		return nil, fmt.Errorf("formats: g64 %s: %w", path, ErrInvalidFormat)
	}
	numHalfTracks := int(data[9])
	maxTrackSize := int(data[10]) | int(data[11])<<8

	img := &G64Image{fs: fs, path: path, numHalfTracks: numHalfTracks, maxTrackSize: maxTrackSize}

	offsetTableStart := g64HeaderSize
	for i := 0; i < numHalfTracks; i++ {
		base := offsetTableStart + i*g64OffsetEntry
		if base+4 > len(data) {
			break
		}
		v := uint32(data[base]) | uint32(data[base+1])<<8 | uint32(data[base+2])<<16 | uint32(data[base+3])<<24
		img.offsets = append(img.offsets, v)
	}
	speedTableStart := offsetTableStart + numHalfTracks*g64OffsetEntry
	for i := 0; i < numHalfTracks; i++ {
		base := speedTableStart + i*g64SpeedEntry
		if base+4 > len(data) {
			img.speedZones = append(img.speedZones, 3)
			continue
		}
		v := uint32(data[base]) | uint32(data[base+1])<<8 | uint32(data[base+2])<<16 | uint32(data[base+3])<<24
		img.speedZones = append(img.speedZones, v)
	}
	return img, nil
}

// HeadCount implements disk.ImageSource. G64 images are always single-sided.
func (g *G64Image) HeadCount() int { return 1 }

// PositionCount implements disk.ImageSource, counting whole tracks (G64
// indexes by half-track; this module's HeadPosition already carries
// quarter-track precision, so a half-track step is addr.Position+2).
func (g *G64Image) PositionCount() int { return g.numHalfTracks / 2 }

// IsReadOnly implements disk.ImageSource.
func (g *G64Image) IsReadOnly() bool { return false }

func (g *G64Image) halfTrackIndex(addr disk.Address) int {
	return int(addr.Position) / 2 // HeadPosition quarters -> G64 half-tracks
}

func (g *G64Image) LoadTrack(addr disk.Address) (disk.Track, error) {
	idx := g.halfTrackIndex(addr)
	if idx < 0 || idx >= len(g.offsets) || g.offsets[idx] == 0 {
		return disk.NewSynthesizedIndexTrack(g64ClockRate), nil
	}
	data, err := readFile(g.fs, g.path)
	if err != nil {
		return nil, err
	}
	off := int64(g.offsets[idx])
	if off+2 > int64(len(data)) {
		return disk.NewSynthesizedIndexTrack(g64ClockRate), nil
	}
	trackLen := int(data[off]) | int(data[off+1])<<8
	start := off + 2
	end := start + int64(trackLen)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	raw := data[start:end]

	zone := 3
	if idx < len(g.speedZones) {
		zone = int(g.speedZones[idx] & 0x3)
	}
	bitLength := rational.New(g64ZoneCyclesPerBit[zone], g64ClockRate)

	seg := disk.NewPCMSegment(uint32(len(raw))*8, bitLength)
	copy(seg.Data, raw)
	return disk.NewPCMTrack(seg), nil
}

func (g *G64Image) StoreTrack(addr disk.Address, track disk.Track) error {
	idx := g.halfTrackIndex(addr)
	if idx < 0 || idx >= len(g.offsets) || g.offsets[idx] == 0 {
		return nil
	}
	pcm, ok := track.(*disk.PCMTrack)
	if !ok || len(pcm.Segments) == 0 {
		return fmt.Errorf("formats: g64 store: track is not a populated PCMTrack")
	}
	seg := pcm.Segments[0]
	byteLen := int((seg.NumberOfBits + 7) / 8)
	if byteLen > g.maxTrackSize {
		byteLen = g.maxTrackSize
	}
	buf := make([]byte, 2+byteLen)
	buf[0] = byte(byteLen)
	buf[1] = byte(byteLen >> 8)
	copy(buf[2:], seg.Data[:byteLen])

	off := int64(g.offsets[idx])
	return writeRegion(g.fs, g.path, off, buf)
}
