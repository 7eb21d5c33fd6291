// Package scantarget defines the boundary a CRT scan generator writes
// through (§4.10): write-area allocation, submission, and vertical/
// horizontal retrace announcements, plus the observational DisplayMetrics
// a host uses to pace its own frame pump against the generator's actual
// output rate.
//
// Grounded on video_interface.go's VideoOutput sink abstraction
// (GetFrame/output-channel pattern), generalized from "hand back a whole
// RGBA frame" to "allocate, populate, and submit one scan at a time" per
// §4.10.
package scantarget

// Modal names the pixel encoding a ScanTarget expects written into its
// allocated scan buffers (§4.10).
type Modal int

const (
	Luminance1 Modal = iota
	Luminance8
	PhaseLinkedLuminance8
	Luminance8Phase8
	RGB1
	RGB2
	RGB4
	RGB8
)

func (m Modal) String() string {
	switch m {
	case Luminance1:
		return "Luminance1"
	case Luminance8:
		return "Luminance8"
	case PhaseLinkedLuminance8:
		return "PhaseLinkedLuminance8"
	case Luminance8Phase8:
		return "Luminance8Phase8"
	case RGB1:
		return "RGB1"
	case RGB2:
		return "RGB2"
	case RGB4:
		return "RGB4"
	case RGB8:
		return "RGB8"
	default:
		return "Modal(?)"
	}
}

// ColourSpace selects the composite decode matrix a ScanTarget applies to
// phase-carrying modals (§4.10).
type ColourSpace int

const (
	YIQ ColourSpace = iota
	YUV
)

// Point is one endpoint of a Scan, 16.0 fixed-point across the visible
// rectangle (§3's Scan type).
type Point struct {
	X, Y          uint16
	DataOffset    uint16
	CompositeAngle int16
}

// Scan is a single contiguous span of one signal type (§3, §4.9): "the
// generator emits a single Scan record per contiguous span of identical
// type".
type Scan struct {
	Start, End         Point
	CompositeAmplitude uint8
}

// RetraceKind distinguishes the two event announcements ScanTarget
// receives (§4.10).
type RetraceKind int

const (
	HorizontalRetrace RetraceKind = iota
	VerticalRetrace
)

// ScanTarget is the sink a CRT scan generator writes through (§4.9, §4.10):
// allocate up to one line of pixel storage, populate it, reduce the
// allocation to the pixels actually produced, submit the finished Scan,
// and announce retrace events. Reset/Flush bracket a batch of scans the
// way a renderer's frame boundary does.
type ScanTarget interface {
	// SetModals declares the input data type, colour space, and expected
	// line count for all subsequent scans, until changed again.
	SetModals(modal Modal, space ColourSpace, expectedLines int)
	// AllocateWriteArea reserves storage for up to maxLength pixels of the
	// declared Modal and returns a handle plus the caller's backing slice to
	// populate.
	AllocateWriteArea(maxLength int) (handle int, buffer []byte)
	// ReduceAllocationTo truncates the most recent allocation to the actual
	// pixel count produced, once the generator knows it.
	ReduceAllocationTo(handle int, actualLength int)
	// Submit finalizes one Scan record against the most recent allocation.
	Submit(scan Scan)
	// Announce reports a horizontal or vertical retrace event.
	Announce(kind RetraceKind)
	// Flush drains any scans buffered since the last Flush/Reset to the
	// underlying renderer.
	Flush()
	// Reset discards any pending, unsubmitted allocation.
	Reset()
}

// DisplayMetrics accumulates observational frame/rate statistics for host
// synchronization (§4.10): how many retrace events actually arrived,
// useful for a host deciding whether to resample its audio clock or drop
// a frame. This is a passive counter, not a ScanTarget implementation —
// a host wraps a real ScanTarget and an embedded DisplayMetrics together.
type DisplayMetrics struct {
	HorizontalRetraceCount uint64
	VerticalRetraceCount   uint64
	ScansSubmitted         uint64
	PixelsSubmitted        uint64
}

// Observe updates the metrics from one Announce call.
func (m *DisplayMetrics) Observe(kind RetraceKind) {
	switch kind {
	case HorizontalRetrace:
		m.HorizontalRetraceCount++
	case VerticalRetrace:
		m.VerticalRetraceCount++
	}
}

// ObserveScan updates the metrics from one submitted Scan of the given
// pixel length.
func (m *DisplayMetrics) ObserveScan(pixelLength int) {
	m.ScansSubmitted++
	m.PixelsSubmitted += uint64(pixelLength)
}

// FieldRateHz estimates the field rate from accumulated vertical retraces
// over the given elapsed seconds, returning 0 if no time has elapsed.
func (m *DisplayMetrics) FieldRateHz(elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return float64(m.VerticalRetraceCount) / elapsedSeconds
}
