package formats

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

const (
	oricDSKSignature  = "MFM_DISK"
	oricDSKHeaderSize = 256
)

// OricDSKImage implements disk.ImageSource for the Oric "MFM_DISK" disk
// image format (§6): a fixed header naming geometry, followed by a raw
// sequential sector dump per track, MFM double density, 17 sectors of 256
// bytes each — the Microdisc/Jasmin controller's standard layout.
type OricDSKImage struct {
	raw *rawSectorImage
}

// NewOricDSKImage opens an Oric MFM_DISK image from fs.
func NewOricDSKImage(fs afero.Fs, path string) (*OricDSKImage, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}
	if len(data) < oricDSKHeaderSize || !bytes.HasPrefix(data, []byte(oricDSKSignature)) {
		return nil, fmt.Errorf("formats: oricdsk %s: %w", path, ErrInvalidFormat)
	}
	numSides := int(data[12]) | int(data[13])<<8 | int(data[14])<<16 | int(data[15])<<24
	if numSides == 0 {
		numSides = 1
	}
	r, err := newRawSectorImageWithHeader(fs, path, oricDSKHeaderSize, numSides, 17, 256, true)
	if err != nil {
		return nil, err
	}
	r.secBase = 1
	return &OricDSKImage{raw: r}, nil
}

func (o *OricDSKImage) HeadCount() int     { return o.raw.HeadCount() }
func (o *OricDSKImage) PositionCount() int { return o.raw.PositionCount() }
func (o *OricDSKImage) IsReadOnly() bool   { return o.raw.IsReadOnly() }

func (o *OricDSKImage) LoadTrack(addr disk.Address) (disk.Track, error) {
	return o.raw.LoadTrack(addr)
}

func (o *OricDSKImage) StoreTrack(addr disk.Address, t disk.Track) error {
	return o.raw.StoreTrack(addr, t)
}
