package formats

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

// rawSectorImage implements disk.ImageSource for the Acorn "raw sequential
// sector dump" family: SSD (single-sided FM), DSD (double-sided FM, tracks
// interleaved by side), and ADF (double-sided MFM, ADFS's flat sector map).
// None of these carry an on-disk ID/data-mark framing of their own — a
// sector's address is implied purely by its position in the file — so this
// type synthesizes the framing identically on every LoadTrack and discards
// it again on StoreTrack.
type rawSectorImage struct {
	fs       afero.Fs
	path     string
	size     int64 // total sector-data bytes, excluding any leading header
	header   int64 // byte offset the sector data starts at
	numSides int
	sectors  int // sectors per track
	secSize  int
	secBase  uint8 // first sector number (Acorn FM/MFM both start at 0)
	doubleD  bool  // MFM (ADF) vs FM (SSD/DSD)
}

func newRawSectorImage(fs afero.Fs, path string, numSides, sectorsPerTrack, sectorSize int, doubleDensity bool) (*rawSectorImage, error) {
	return newRawSectorImageWithHeader(fs, path, 0, numSides, sectorsPerTrack, sectorSize, doubleDensity)
}

func newRawSectorImageWithHeader(fs afero.Fs, path string, header int64, numSides, sectorsPerTrack, sectorSize int, doubleDensity bool) (*rawSectorImage, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}
	trackBytes := sectorsPerTrack * sectorSize
	dataSize := int64(len(data)) - header
	if trackBytes == 0 || dataSize < 0 || dataSize%int64(trackBytes) != 0 {
		return nil, fmt.Errorf("formats: %s: %w", path, ErrInvalidFormat)
	}
	return &rawSectorImage{
		fs: fs, path: path, size: dataSize, header: header,
		numSides: numSides, sectors: sectorsPerTrack, secSize: sectorSize,
		doubleD: doubleDensity,
	}, nil
}

// NewSSDImage opens an Acorn single-sided FM disk image (§6).
func NewSSDImage(fs afero.Fs, path string) (disk.ImageSource, error) {
	return newRawSectorImage(fs, path, 1, 10, 256, false)
}

// NewDSDImage opens an Acorn double-sided FM disk image, tracks interleaved
// by side (track0/side0, track0/side1, track1/side0, ...) (§6).
func NewDSDImage(fs afero.Fs, path string) (disk.ImageSource, error) {
	return newRawSectorImage(fs, path, 2, 10, 256, false)
}

// NewADFImage opens an Acorn ADFS double-sided MFM disk image (§6). ADFS's
// L-format layout: 80 tracks, 2 heads, 16 sectors of 256 bytes each.
func NewADFImage(fs afero.Fs, path string) (disk.ImageSource, error) {
	return newRawSectorImage(fs, path, 2, 16, 256, true)
}

func (r *rawSectorImage) trackByteOffset(addr disk.Address) int64 {
	track := int64(addr.Position.WholeTrack())
	trackBytes := int64(r.sectors * r.secSize)
	if r.numSides == 1 {
		return r.header + track*trackBytes
	}
	// DSD/ADF both interleave by side: each physical track occupies
	// numSides consecutive track-sized blocks, head-major.
	return r.header + (track*int64(r.numSides)+int64(addr.Head))*trackBytes
}

func (r *rawSectorImage) HeadCount() int     { return r.numSides }
func (r *rawSectorImage) PositionCount() int { return int(r.size / int64(r.numSides*r.sectors*r.secSize)) }
func (r *rawSectorImage) IsReadOnly() bool   { return false }

func (r *rawSectorImage) LoadTrack(addr disk.Address) (disk.Track, error) {
	offset := r.trackByteOffset(addr)
	if offset < 0 || offset >= r.header+r.size {
		return disk.NewSynthesizedIndexTrack(1000000), nil
	}
	data, err := readFile(r.fs, r.path)
	if err != nil {
		return nil, err
	}
	trackBytes := int64(r.sectors * r.secSize)
	end := offset + trackBytes
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	trackData := data[offset:end]

	sectors := make([]SectorImage, 0, r.sectors)
	for i := 0; i < r.sectors; i++ {
		start := i * r.secSize
		stop := start + r.secSize
		if stop > len(trackData) {
			stop = len(trackData)
		}
		sectors = append(sectors, SectorImage{
			SectorParams: SectorParams{
				Track:    uint8(addr.Position.WholeTrack()),
				Head:     addr.Head,
				Sector:   r.secBase + uint8(i),
				SizeCode: sizeCodeFor(r.secSize),
			},
			Data: clampSector(trackData[start:stop], r.secSize),
		})
	}
	if r.doubleD {
		return EncodeTrackMFM(sectors, standardMFMBitLength(1000000)), nil
	}
	return EncodeTrackFM(sectors, standardFMBitLength()), nil
}

func (r *rawSectorImage) StoreTrack(addr disk.Address, track disk.Track) error {
	pcm, ok := track.(*disk.PCMTrack)
	if !ok {
		return fmt.Errorf("formats: store: track is not a PCMTrack")
	}
	var decoded []SectorImage
	if r.doubleD {
		decoded = DecodeTrackMFM(pcm)
	} else {
		decoded = DecodeTrackFM(pcm)
	}
	bySector := make(map[uint8][]byte, len(decoded))
	for _, s := range decoded {
		bySector[s.Sector] = s.Data
	}

	offset := r.trackByteOffset(addr)
	for i := 0; i < r.sectors; i++ {
		num := r.secBase + uint8(i)
		data, ok := bySector[num]
		if !ok {
			continue
		}
		if err := writeRegion(r.fs, r.path, offset+int64(i*r.secSize), clampSector(data, r.secSize)); err != nil {
			return err
		}
	}
	return nil
}

func sizeCodeFor(size int) uint8 {
	switch size {
	case 128:
		return 0
	case 256:
		return 1
	case 512:
		return 2
	case 1024:
		return 3
	default:
		return 1
	}
}
