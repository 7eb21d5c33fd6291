package disk

import (
	"sync"

	"github.com/intuitionamiga/clkcore/internal/clock"
	"github.com/intuitionamiga/clkcore/internal/eventloop"
	"github.com/intuitionamiga/clkcore/internal/hint"
	"github.com/intuitionamiga/clkcore/internal/rational"
)

// EventDelegate receives flux events and write-completion notifications
// from a Drive (§4.4).
type EventDelegate interface {
	ProcessEvent(Event)
	ProcessWriteCompleted(PCMSegment)
}

// Drive rotates the current Track in real time, forwarding flux events to
// an EventDelegate at their exact simulated cycle (§4.4). It embeds a
// TimedEventLoop the way video_chip.go embeds a shared mutex-guarded core
// struct reused by register-facing wrappers.
type Drive struct {
	mu sync.Mutex

	clockRate            uint32
	rotationalMultiplier rational.Time // Time{60, rpm}: seconds per revolution

	head         uint8
	headPosition HeadPosition
	image        DiskImage
	track        Track
	writeProtect bool

	motorOn       bool
	started       bool
	pending       Event
	eventDelegate EventDelegate

	loop *eventloop.Loop

	writing      bool
	writeSegment PCMSegment
	writeIndex   uint32
}

// NewDrive constructs a Drive ticking at clockRate cycles/second, spinning
// at rpm revolutions per minute once its motor is switched on.
func NewDrive(clockRate uint32, rpm uint32) *Drive {
	if rpm == 0 {
		rpm = 300
	}
	d := &Drive{
		clockRate:            clockRate,
		rotationalMultiplier: rational.New(60, rpm),
		track:                NewSynthesizedIndexTrack(clockRate),
	}
	d.loop = eventloop.NewLoop(clockRate, d)
	return d
}

// SetEventDelegate attaches the delegate notified of flux events and write
// completions.
func (d *Drive) SetEventDelegate(delegate EventDelegate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.eventDelegate = delegate
}

// SetDisk attaches image, resetting head position and current track
// (§4.4: "attach an image; reset position").
func (d *Drive) SetDisk(image DiskImage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.image = image
	d.headPosition = 0
	d.loadTrackLocked()
	d.started = false
}

// loadTrackLocked refreshes d.track from d.image at the current address, or
// falls back to the synthesized index track when no image is attached or
// the image has nothing at this address.
func (d *Drive) loadTrackLocked() {
	if d.image == nil {
		d.track = NewSynthesizedIndexTrack(d.clockRate)
		return
	}
	if t, ok := d.image.TrackAt(Address{Head: d.head, Position: d.headPosition}); ok {
		d.track = t
		d.writeProtect = d.image.IsReadOnly()
		return
	}
	d.track = NewSynthesizedIndexTrack(d.clockRate)
}

// Step moves the head by direction whole tracks (±1 for a single step);
// quarter-track positions are not reachable through Step. The sub-event offset
// within the new track is not preserved across a step (§4.4: "recompute
// current event; preserve sub-event offset" refers to in-track timing,
// which resets naturally since the new track is a different surface).
func (d *Drive) Step(direction int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	quarters := direction * 4
	d.headPosition = d.headPosition.StepBy(quarters)
	d.loadTrackLocked()
	d.loop.ResetTimer()
	d.started = false
}

// SetMotorOn gates rotation. Per §4.11, a drive with its motor off reports
// ClockingHint.None and its time-dependent state is frozen (no phase
// accumulates while asleep).
func (d *Drive) SetMotorOn(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.motorOn = on
}

// SetHead switches side (§4.4).
func (d *Drive) SetHead(head uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.head = head
	d.loadTrackLocked()
}

// GetIsTrackZero reports whether the physical head position is exactly 0.
func (d *Drive) GetIsTrackZero() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.headPosition.IsTrackZero()
}

// RunFor advances the drive by cycles, delivering any flux events whose
// scheduled time falls within the span to the event delegate (§4.4). A
// drive whose motor is off does not rotate: cycles pass with nothing
// scheduled.
func (d *Drive) RunFor(cycles clock.Cycles) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.motorOn {
		return
	}
	if !d.started {
		d.scheduleNextLocked()
		d.started = true
	}
	d.loop.RunFor(cycles)
}

// PreferredClocking implements hint.Source: a drive with its motor off asks
// to be left alone (§4.11); otherwise it wants real-time advancement since
// flux timing is exact-cycle sensitive.
func (d *Drive) PreferredClocking() hint.Preference {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.motorOn {
		return hint.None
	}
	return hint.RealTime
}

// ProcessNextEvent implements eventloop.Delegate: the previously scheduled
// event has now elapsed, so deliver it, then fetch and schedule the next
// one (§4.4: "on event, invoke delegate's process_event(event), then fetch
// the next event").
func (d *Drive) ProcessNextEvent() {
	if d.eventDelegate != nil {
		d.eventDelegate.ProcessEvent(d.pending)
	}
	d.scheduleNextLocked()
}

func (d *Drive) scheduleNextLocked() {
	event := d.track.NextEvent()
	d.pending = event
	interval := event.Length.Mul(d.rotationalMultiplier)
	d.loop.SetNextEventTimeInterval(interval)
}

// WriteBit accepts one bit at the drive's current bit rate while in write
// mode, accumulating it into a PCMSegment that replaces the covered region
// of the track once FinishWrite is called (§4.4).
func (d *Drive) WriteBit(bit bool, lengthOfABit rational.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.writing {
		d.writing = true
		d.writeSegment = NewPCMSegment(0, lengthOfABit)
		d.writeIndex = 0
	}
	if d.writeIndex>>3 >= uint32(len(d.writeSegment.Data)) {
		d.writeSegment.Data = append(d.writeSegment.Data, 0)
	}
	d.writeSegment.NumberOfBits = d.writeIndex + 1
	d.writeSegment.SetBit(d.writeIndex, bit)
	d.writeIndex++
}

// FinishWrite ends write mode, replacing the track region covered by the
// accumulated PCMSegment and reporting ProcessWriteCompleted (§4.4).
func (d *Drive) FinishWrite() {
	d.mu.Lock()
	segment := d.writeSegment
	d.writing = false
	d.writeSegment = PCMSegment{}
	d.writeIndex = 0
	pcm := NewPCMTrack(segment)
	d.track = pcm
	if d.image != nil {
		_ = d.image.StoreTrack(Address{Head: d.head, Position: d.headPosition}, pcm)
	}
	delegate := d.eventDelegate
	d.mu.Unlock()
	if delegate != nil {
		delegate.ProcessWriteCompleted(segment)
	}
}

// IsWriteProtected reports whether the currently attached image refuses
// writes.
func (d *Drive) IsWriteProtected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeProtect
}
