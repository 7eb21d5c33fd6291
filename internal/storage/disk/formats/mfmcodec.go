package formats

import (
	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/disk"
	"github.com/intuitionamiga/clkcore/internal/storage/disk/controller"
	"github.com/intuitionamiga/clkcore/internal/storage/disk/mfmwriter"
)

// SectorParams is mfmwriter's per-sector CHS addressing, used unqualified by
// the sector-dump formats in this package.
type SectorParams = mfmwriter.SectorParams

// SectorImage is one sector's CHS addressing plus its raw bytes, the
// common shape every sector-dump format (DSK/SSD/DSD/ADF/OricDSK) converts
// to and from an MFM/FM-encoded PCMTrack.
type SectorImage struct {
	mfmwriter.SectorParams
	Data []byte
}

// EncodeTrackMFM assembles a complete double-density PCMTrack from an
// ordered list of sectors, using mfmwriter's per-sector write helpers
// (§4.5, §4.6).
func EncodeTrackMFM(sectors []SectorImage, bitLength rational.Time) *disk.PCMTrack {
	track := disk.NewPCMTrack(mfmwriter.WriteTrackPreamble(bitLength))
	for _, s := range sectors {
		track.AppendSegment(mfmwriter.WriteIDDataJoiner(s.SectorParams, s.Data, bitLength))
	}
	return track
}

// EncodeTrackFM is EncodeTrackMFM's single-density analogue, for the FM-only
// formats (Acorn SSD/DSD).
func EncodeTrackFM(sectors []SectorImage, bitLength rational.Time) *disk.PCMTrack {
	track := disk.NewPCMTrack(mfmwriter.WriteTrackPreambleFM(bitLength))
	for _, s := range sectors {
		track.AppendSegment(mfmwriter.WriteIDDataJoinerFM(s.SectorParams, s.Data, bitLength))
	}
	return track
}

// tokenCollector implements controller.TokenDelegate, assembling decoded
// ID/Data token pairs into SectorImage values — the read-back half of the
// round-trip §8 names ("decode(encode(random_512_bytes_with_framing))
// equals the input, including CRC").
type tokenCollector struct {
	sectors []SectorImage

	inHeader   []byte
	haveHeader bool

	inData    []byte
	wantData  int
	collectingData bool
}

func (c *tokenCollector) ProcessToken(t controller.Token) {
	switch t.Kind {
	case controller.TokenID:
		c.inHeader = c.inHeader[:0]
		c.haveHeader = true
	case controller.TokenData:
		c.collectingData = true
		c.inData = c.inData[:0]
	case controller.TokenByte:
		if c.haveHeader && len(c.inHeader) < 4 {
			c.inHeader = append(c.inHeader, t.ByteValue)
			if len(c.inHeader) == 4 {
				c.haveHeader = false
				c.wantData = sectorSizeFromCode(c.inHeader[3])
			}
			return
		}
		if c.collectingData {
			c.inData = append(c.inData, t.ByteValue)
			if len(c.inData) >= c.wantData {
				c.collectingData = false
				header := c.inHeader
				data := make([]byte, len(c.inData))
				copy(data, c.inData)
				if len(header) == 4 {
					c.sectors = append(c.sectors, SectorImage{
						SectorParams: mfmwriter.SectorParams{
							Track:    header[0],
							Head:     header[1],
							Sector:   header[2],
							SizeCode: header[3],
						},
						Data: data,
					})
				}
			}
		}
	}
}

func sectorSizeFromCode(code byte) int {
	switch code {
	case 0:
		return 128
	case 1:
		return 256
	case 2:
		return 512
	case 3:
		return 1024
	default:
		return 512
	}
}

// DecodeTrackMFM reads sectors back out of a PCMTrack by feeding its bits
// directly into an MFMController's decode state machine. Reading bits
// directly off the PCMSegment (rather than re-synthesizing flux pulses
// through a DigitalPhaseLockedLoop) is exact for a track this package
// itself encoded, which is the only path StoreTrack/LoadTrack round-trips
// through; a PLL is only needed when reconstructing from genuinely
// irregular flux timing, which §4.3/§4.4 already cover for the Drive path.
func DecodeTrackMFM(track *disk.PCMTrack) []SectorImage {
	return decodeTrack(track, true)
}

// DecodeTrackFM is DecodeTrackMFM's single-density analogue.
func DecodeTrackFM(track *disk.PCMTrack) []SectorImage {
	return decodeTrack(track, false)
}

func decodeTrack(track *disk.PCMTrack, isDoubleDensity bool) []SectorImage {
	collector := &tokenCollector{}
	m := controller.NewBareMFMDecoder(collector, isDoubleDensity)
	crcCells := 0

	for _, seg := range track.Segments {
		for i := uint32(0); i < seg.NumberOfBits; i++ {
			bit := 0
			if seg.Bit(i) {
				bit = 1
			}
			// Inside an ID or data field, its two CRC bytes and the gap
			// byte after them (48 cells), every bit is data: a run that
			// happens to match a mark pattern is not taken for one.
			inField := collector.haveHeader || collector.collectingData
			if inField {
				crcCells = 48
			}
			if inField || crcCells > 0 {
				m.SetDataMode(controller.Reading)
			} else {
				m.SetDataMode(controller.Scanning)
			}
			m.DigitalPhaseLockedLoopOutputBit(bit)
			if !inField && crcCells > 0 {
				crcCells--
			}
		}
	}
	return collector.sectors
}
