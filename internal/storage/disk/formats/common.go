// Package formats implements disk.ImageSource for the sector/track-dump
// image formats named in §6: DSK (CPC), SSD/DSD (Acorn), ADF (Acorn), G64
// (Commodore), OricDSK, and Macintosh IMG (raw sector dump and DiskCopy
// 4.2). Each wraps an afero.Fs-backed file, decoding/encoding whole tracks
// through the shared MFM/FM sector codec in mfmcodec.go, or (G64,
// Macintosh GCR) through their own native bit-level encodings.
//
// Grounded on file_io.go's file-region read/write pattern, generalized from
// a single fixed-layout MMIO device to format-specific binary layouts.
package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/disk"
)

const pathFlags = os.O_RDWR

// ErrMissingROMs is unused by this package directly but named here per
// §7's error taxonomy for the benefit of callers that need the sentinel
// alongside ErrInvalidFormat when reporting load failures uniformly.
var ErrMissingROMs = errors.New("formats: required ROM not supplied")

func readFile(fs afero.Fs, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("formats: open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("formats: stat %s: %w", path, err)
	}
	data := make([]byte, info.Size())
	if _, err := f.Read(data); err != nil {
		return nil, fmt.Errorf("formats: read %s: %w", path, err)
	}
	return data, nil
}

func writeRegion(fs afero.Fs, path string, offset int64, data []byte) error {
	f, err := fs.OpenFile(path, pathFlags, 0o644)
	if err != nil {
		return fmt.Errorf("formats: open %s for write: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(data, offset); err != nil {
		return fmt.Errorf("formats: write %s at %d: %w", path, offset, err)
	}
	return nil
}

// standardMFMBitLength is the nominal double-density bit cell duration at
// the classic 250kbit/s data rate 3.5"/5.25" drives run at.
func standardMFMBitLength(clockRate uint32) rational.Time {
	return rational.New(1, 250000)
}

// standardFMBitLength is the single-density analogue, half the bit rate.
func standardFMBitLength() rational.Time {
	return rational.New(1, 125000)
}

// clampSector pads or truncates data to exactly size bytes, the convention
// every sector-dump format uses when a stored sector is short (corrupt
// image) or long (authoring-tool padding).
func clampSector(data []byte, size int) []byte {
	if len(data) == size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

// Address is re-exported for callers that only import this package.
type Address = disk.Address
