// Package disk implements the surface/track/drive/cache data model of §3,
// §4.4, §4.6 and §4.7: the abstract Track a Drive rotates, the PCM bit
// encoding a concrete track stores, and the cache + write-back layer that
// sits between a Drive and a DiskImage's backing file.
package disk

import (
	"github.com/intuitionamiga/clkcore/internal/rational"
)

// EventKind distinguishes the two kinds of event a Track can report.
type EventKind int

const (
	IndexHole EventKind = iota
	FluxTransition
)

func (k EventKind) String() string {
	switch k {
	case IndexHole:
		return "IndexHole"
	case FluxTransition:
		return "FluxTransition"
	default:
		return "EventKind(?)"
	}
}

// Event is one flux-level event on a track surface. Length is the
// fraction of one revolution elapsed since the previous event; the sum of
// Length across one full rotation must equal exactly 1 revolution (§3).
type Event struct {
	Kind   EventKind
	Length rational.Time
}

// Track is the abstract surface a Drive rotates. Implementations must
// guarantee at least one IndexHole event per revolution, synthesising one
// if the underlying encoding doesn't carry an explicit index mark.
type Track interface {
	// NextEvent returns the next event on the track, advancing internal
	// read position past it.
	NextEvent() Event
	// SeekTo locates the first event boundary at or after the requested
	// time and returns the exact time reached, which may be slightly less
	// than requested (§4.6).
	SeekTo(t rational.Time) rational.Time
	// Clone returns an independent copy sharing no mutable read state.
	Clone() Track
}

// HeadPosition is fixed-point with quarter-track precision (§3), stored as
// a count of quarter-tracks so copy-protected disks using sub-track offsets
// are representable exactly.
type HeadPosition int32

// WholeTrack returns the whole track number, truncating toward zero.
func (p HeadPosition) WholeTrack() int32 { return int32(p) / 4 }

// QuarterOffset returns the sub-track offset in quarters, 0..3.
func (p HeadPosition) QuarterOffset() int32 {
	q := int32(p) % 4
	if q < 0 {
		q += 4
	}
	return q
}

// IsTrackZero reports whether this position is exactly physical track 0.
func (p HeadPosition) IsTrackZero() bool { return p == 0 }

// StepBy returns the position moved by quarters quarter-tracks (positive or
// negative), clamped so it never goes below zero (no negative track).
func (p HeadPosition) StepBy(quarters int32) HeadPosition {
	next := int32(p) + quarters
	if next < 0 {
		next = 0
	}
	return HeadPosition(next)
}

// Address identifies a single track surface within a DiskImage (§3).
type Address struct {
	Head     uint8
	Position HeadPosition
}

// synthesizedIndexTrack is the "no disk present" track (§4.4): a single
// IndexHole event per revolution, nothing else.
type synthesizedIndexTrack struct {
	rate   uint32
	cursor rational.Time
}

// NewSynthesizedIndexTrack returns the empty-drive placeholder track: one
// IndexHole per revolution and nothing else.
func NewSynthesizedIndexTrack(clockRate uint32) Track {
	return &synthesizedIndexTrack{rate: clockRate}
}

func (t *synthesizedIndexTrack) NextEvent() Event {
	return Event{Kind: IndexHole, Length: rational.New(1, 1)}
}

func (t *synthesizedIndexTrack) SeekTo(target rational.Time) rational.Time {
	t.cursor = target
	return target
}

func (t *synthesizedIndexTrack) Clone() Track {
	return &synthesizedIndexTrack{rate: t.rate, cursor: t.cursor}
}
