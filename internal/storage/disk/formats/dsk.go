package formats

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

// ErrInvalidFormat is returned when a file doesn't match the magic/layout a
// loader expects, shared across every format in this package.
var ErrInvalidFormat = errors.New("formats: invalid disk image")

const (
	dskSignatureStandard = "MV - CPCEMU"
	dskSignatureExtended = "EXTENDED CPC DSK File"
	dskHeaderSize        = 256
	dskTrackHeaderSize   = 24
	dskSectorInfoSize    = 8
)

// dskTrack holds one track's parsed sector table plus the file offset its
// sector data starts at, so StoreTrack can write modified sectors back to
// the exact bytes they came from without reflowing the whole image.
type dskTrack struct {
	fileOffset int64
	sectorSize int
	params     []SectorParams
}

// DSKImage implements disk.ImageSource for the Amstrad CPC "DSK" and
// "Extended DSK" formats (§6), both standard and extended track-size-table
// variants. Grounded on file_io.go's file-region read/write pattern: the
// sector tables are parsed once at construction, sector bytes are re-read
// from the file on each LoadTrack, and StoreTrack writes each sector back
// to its own byte range.
type DSKImage struct {
	fs       afero.Fs
	path     string
	extended bool
	numSides int
	tracks   []dskTrack // index = track*numSides + side
}

// NewDSKImage opens a CPC disk image (standard or Extended DSK) from fs.
func NewDSKImage(fs afero.Fs, path string) (*DSKImage, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}
	if len(data) < dskHeaderSize {
		return nil, fmt.Errorf("formats: dsk %s: %w", path, ErrInvalidFormat)
	}

	extended := bytes.HasPrefix(data, []byte(dskSignatureExtended))
	if !extended && !bytes.HasPrefix(data, []byte(dskSignatureStandard)) {
		return nil, fmt.Errorf("formats: dsk %s: %w", path, ErrInvalidFormat)
	}

	numTracks := int(data[48])
	numSides := int(data[49])
	if numSides == 0 {
		numSides = 1
	}

	var trackByteSizes []int
	if extended {
		trackByteSizes = make([]int, numTracks*numSides)
		for i := range trackByteSizes {
			trackByteSizes[i] = int(data[52+i]) * 256
		}
	} else {
		uniform := int(data[50]) | int(data[51])<<8
		trackByteSizes = make([]int, numTracks*numSides)
		for i := range trackByteSizes {
			trackByteSizes[i] = uniform
		}
	}

	img := &DSKImage{fs: fs, path: path, extended: extended, numSides: numSides}
	offset := int64(dskHeaderSize)
	for i, size := range trackByteSizes {
		if size == 0 {
			img.tracks = append(img.tracks, dskTrack{})
			continue
		}
		t, err := parseDSKTrack(data, offset, size)
		if err != nil {
			return nil, fmt.Errorf("formats: dsk %s track %d: %w", path, i, err)
		}
		img.tracks = append(img.tracks, t)
		offset += int64(size)
	}
	return img, nil
}

func parseDSKTrack(data []byte, offset int64, size int) (dskTrack, error) {
	if offset+int64(dskTrackHeaderSize) > int64(len(data)) {
		return dskTrack{}, ErrInvalidFormat
	}
	hdr := data[offset : offset+dskTrackHeaderSize]
	numSectors := int(hdr[21])
	sizeCode := hdr[20]
	sectorSize := sectorSizeFromCode(sizeCode)

	sectorDataOffset := offset + dskTrackHeaderSize + int64(numSectors)*dskSectorInfoSize
	t := dskTrack{fileOffset: sectorDataOffset, sectorSize: sectorSize}
	for i := 0; i < numSectors; i++ {
		info := data[offset+dskTrackHeaderSize+int64(i*dskSectorInfoSize):]
		params := SectorParams{Track: info[0], Head: info[1], Sector: info[2], SizeCode: info[3]}
		actualLen := int(info[6]) | int(info[7])<<8
		if actualLen == 0 {
			actualLen = sectorSizeFromCode(params.SizeCode)
		}
		t.params = append(t.params, params)
		sectorDataOffset += int64(actualLen)
	}
	return t, nil
}

func (d *DSKImage) index(addr disk.Address) int {
	return int(addr.Position.WholeTrack())*d.numSides + int(addr.Head)
}

// HeadCount implements disk.ImageSource.
func (d *DSKImage) HeadCount() int { return d.numSides }

// PositionCount implements disk.ImageSource.
func (d *DSKImage) PositionCount() int { return len(d.tracks) / d.numSides }

// IsReadOnly implements disk.ImageSource. DSK carries no write-protect bit
// of its own; writability is a caller/mount-option concern (§6).
func (d *DSKImage) IsReadOnly() bool { return false }

// LoadTrack re-reads the track's sector bytes from the backing file, using
// the sector table parsed at construction, and re-encodes them as MFM
// (§4.5, §4.6).
func (d *DSKImage) LoadTrack(addr disk.Address) (disk.Track, error) {
	idx := d.index(addr)
	if idx < 0 || idx >= len(d.tracks) {
		return disk.NewSynthesizedIndexTrack(1000000), nil
	}
	data, err := readFile(d.fs, d.path)
	if err != nil {
		return nil, err
	}
	t := d.tracks[idx]
	if t.sectorSize == 0 {
		return disk.NewSynthesizedIndexTrack(1000000), nil
	}

	sectors := make([]SectorImage, 0, len(t.params))
	cursor := t.fileOffset
	for _, p := range t.params {
		size := sectorSizeFromCode(p.SizeCode)
		if size == 0 {
			size = t.sectorSize
		}
		end := cursor + int64(size)
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		sectors = append(sectors, SectorImage{SectorParams: p, Data: clampSector(data[cursor:end], size)})
		cursor = end
	}
	return EncodeTrackMFM(sectors, standardMFMBitLength(1000000)), nil
}

// StoreTrack decodes the MFM-encoded track and writes each sector's raw
// bytes back to its original file offset, leaving the sector table header
// untouched (§4.7).
func (d *DSKImage) StoreTrack(addr disk.Address, track disk.Track) error {
	idx := d.index(addr)
	if idx < 0 || idx >= len(d.tracks) {
		return fmt.Errorf("formats: dsk store: %w", ErrInvalidFormat)
	}
	t := d.tracks[idx]
	if t.sectorSize == 0 {
		return nil
	}
	pcm, ok := track.(*disk.PCMTrack)
	if !ok {
		return fmt.Errorf("formats: dsk store: track is not a PCMTrack")
	}
	decoded := DecodeTrackMFM(pcm)
	bySector := make(map[uint8][]byte, len(decoded))
	for _, s := range decoded {
		bySector[s.Sector] = s.Data
	}

	cursor := t.fileOffset
	for _, p := range t.params {
		size := sectorSizeFromCode(p.SizeCode)
		if size == 0 {
			size = t.sectorSize
		}
		if data, ok := bySector[p.Sector]; ok {
			if err := writeRegion(d.fs, d.path, cursor, clampSector(data, size)); err != nil {
				return err
			}
		}
		cursor += int64(size)
	}
	return nil
}
