package controller

import (
	"github.com/intuitionamiga/clkcore/internal/rational"
	"github.com/intuitionamiga/clkcore/internal/storage/disk"
	"github.com/intuitionamiga/clkcore/internal/storage/disk/pll"
)

// MFM/FM address and sync marks (§4.5).
const (
	mfmSyncA1     = 0x4489
	mfmSyncC2     = 0x5224
	fmMarkIDAM    = 0xF57E
	fmMarkDAM     = 0xF56F
	fmMarkDDAM    = 0xF56A
	fmMarkIndexAM = 0xF56B

	crc16Poly = 0x1021
	crc16Init = 0xFFFF
	crc16Sync = 0xcdb4 // re-seed after an MFM sync mark (§4.5)
)

// MFMController translates a PLL's bit stream into a Token sequence,
// implementing the FM/MFM shift-register state machine of §4.5.
type MFMController struct {
	*Controller

	shiftRegister    uint16
	bitsSinceToken   uint8
	isAwaitingMarker bool
	isDoubleDensity  bool
	dataMode         DataMode
	crc              uint16

	delegate TokenDelegate

	bitLength rational.Time
}

// NewMFMController builds an MFMController owning its own PLL loop (so the
// loop's output delegate can be the controller itself) and wires it to
// drive via the embedded Controller.
func NewMFMController(drive *disk.Drive, clockRate uint32, clocksPerBit, tolerance int64) *MFMController {
	m := &MFMController{dataMode: Scanning, crc: crc16Init}
	loop := pll.NewLoop(clocksPerBit, tolerance, m)
	m.Controller = NewController(drive, loop, clockRate)
	return m
}

// NewBareMFMDecoder builds an MFMController with no attached Drive/PLL —
// just the bit-level shift-register decode state machine, for callers (disk
// image format loaders) that already have an exact bit sequence in hand
// and don't need PLL reconstruction or TimedEventLoop scheduling.
func NewBareMFMDecoder(delegate TokenDelegate, isDoubleDensity bool) *MFMController {
	return &MFMController{
		dataMode:        Scanning,
		crc:             crc16Init,
		isDoubleDensity: isDoubleDensity,
		delegate:        delegate,
	}
}

// SetTokenDelegate attaches the delegate notified of each decoded token.
func (m *MFMController) SetTokenDelegate(delegate TokenDelegate) { m.delegate = delegate }

// SetIsDoubleDensity selects the MFM (true) or FM (false) decode variant
// (§4.5: "selected via set_is_double_density(b)").
func (m *MFMController) SetIsDoubleDensity(double bool) { m.isDoubleDensity = double }

// SetDataMode switches between Scanning/Reading/Writing (§4.5).
func (m *MFMController) SetDataMode(mode DataMode) { m.dataMode = mode }

// SetBitLength records the nominal bit length used when encoding outgoing
// writes (Writing mode).
func (m *MFMController) SetBitLength(length rational.Time) { m.bitLength = length }

// DigitalPhaseLockedLoopOutputBit implements pll.OutputDelegate: each
// reconstructed bit shifts into the 16-bit register, checked against the
// relevant sync/address marks, and decoded into a Byte token every 16
// bits (§4.5).
func (m *MFMController) DigitalPhaseLockedLoopOutputBit(bit int) {
	if m.dataMode == Writing {
		return
	}

	m.shiftRegister = (m.shiftRegister << 1) | uint16(bit&1)
	m.bitsSinceToken++

	if m.dataMode != Reading {
		if m.isDoubleDensity {
			switch m.shiftRegister {
			case mfmSyncA1:
				m.emitSync(0xA1)
				return
			case mfmSyncC2:
				m.emitSync(0xC2)
				return
			}
		} else {
			switch m.shiftRegister {
			case fmMarkIDAM:
				m.emitDirectMark(TokenID)
				return
			case fmMarkDAM:
				m.emitDirectMark(TokenData)
				return
			case fmMarkDDAM:
				m.emitDirectMark(TokenDeletedData)
				return
			case fmMarkIndexAM:
				m.emitDirectMark(TokenIndex)
				return
			}
		}
	}

	if m.bitsSinceToken >= 16 {
		m.bitsSinceToken = 0
		byteValue := decodeByte(m.shiftRegister, m.isDoubleDensity)

		kind := TokenByte
		if m.isAwaitingMarker {
			switch byteValue {
			case 0xFE:
				kind = TokenID
			case 0xFB:
				kind = TokenData
			case 0xF8:
				kind = TokenDeletedData
			case 0xFC:
				kind = TokenIndex
			}
			m.isAwaitingMarker = false
		}
		m.updateCRC(byteValue)
		m.emit(Token{Kind: kind, ByteValue: byteValue})
	}
}

func (m *MFMController) emitSync(representativeByte uint8) {
	m.bitsSinceToken = 0
	m.isAwaitingMarker = true
	m.crc = crc16Sync
	m.emit(Token{Kind: TokenSync, ByteValue: representativeByte})
}

func (m *MFMController) emitDirectMark(kind TokenKind) {
	m.bitsSinceToken = 0
	m.crc = crc16Init
	m.emit(Token{Kind: kind, ByteValue: uint8(m.shiftRegister & 0xFF)})
}

func (m *MFMController) emit(t Token) {
	if m.delegate != nil {
		m.delegate.ProcessToken(t)
	}
}

// CRC returns the controller's current running CRC-16 value.
func (m *MFMController) CRC() uint16 { return m.crc }

// ResetCRC reseeds the running CRC, matching §4.5's "caller resets as
// appropriate".
func (m *MFMController) ResetCRC(seed uint16) { m.crc = seed }

func (m *MFMController) updateCRC(byteValue uint8) {
	m.crc ^= uint16(byteValue) << 8
	for i := 0; i < 8; i++ {
		if m.crc&0x8000 != 0 {
			m.crc = (m.crc << 1) ^ crc16Poly
		} else {
			m.crc <<= 1
		}
	}
}

// decodeByte extracts the 8 data bits from a 16-bit shift register. In MFM
// mode, clock bits are interleaved with data bits; the data bits are the
// ones at even bit-positions counting from the least significant bit
// (§4.5: "take every other bit starting at bit 0"). FM mode has no clock
// interleave to remove.
func decodeByte(shiftRegister uint16, doubleDensity bool) uint8 {
	if !doubleDensity {
		return uint8(shiftRegister & 0xFF)
	}
	var b uint8
	for i := 0; i < 8; i++ {
		bit := (shiftRegister >> uint(2*i)) & 1
		b |= uint8(bit) << uint(i)
	}
	return b
}

// EncodeMFMClockBits computes the interleaved 16-bit MFM cell pattern for
// 8 data bits, applying the clock-bit rule clock_i = NOT(data_i OR
// data_{i-1}) (§4.5), most significant cell first. previousDataBit is the
// final data bit of the preceding byte (needed by the clock rule at the
// cell boundary).
func EncodeMFMClockBits(dataByte uint8, previousDataBit bool) (cells uint16, lastDataBit bool) {
	prev := previousDataBit
	for i := 7; i >= 0; i-- {
		data := (dataByte>>uint(i))&1 != 0
		clock := !(data || prev)
		var clockBit, dataBit uint16
		if clock {
			clockBit = 1
		}
		if data {
			dataBit = 1
		}
		cells = (cells << 2) | (clockBit << 1) | dataBit
		prev = data
	}
	return cells, prev
}
