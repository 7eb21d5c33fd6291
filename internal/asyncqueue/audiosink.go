//go:build !headless

// audiosink.go wires a DeferringQueue to a real oto/v3 playback device: the
// concrete audio thread of §5, whose buffer-boundary Read calls double as
// the "flush the deferred work" moment. Grounded on audio_backend_oto.go
// (ctx/player construction, io.Reader-as-source shape); no synthesis
// lives here, only the deferred-task drain, since
// audio synthesis itself is out of this CORE's scope.
package asyncqueue

import (
	"github.com/ebitengine/oto/v3"
)

// AudioSink drains a DeferringQueue once per oto buffer pull, then fills
// the buffer from a caller-supplied sample source. If source is nil the
// sink still drains the queue but emits silence.
type AudioSink struct {
	queue  *DeferringQueue
	source func(buf []byte) (int, error)
	ctx    *oto.Context
	player *oto.Player
}

// NewAudioSink opens an oto context at sampleRate/channels and returns a
// sink that will flush queue on every buffer pull. source may be nil.
func NewAudioSink(queue *DeferringQueue, sampleRate, channels int, source func(buf []byte) (int, error)) (*AudioSink, error) {
	options := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}
	ctx, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, err
	}
	<-ready

	sink := &AudioSink{queue: queue, source: source, ctx: ctx}
	sink.player = ctx.NewPlayer(sink)
	return sink, nil
}

// Read implements io.Reader: oto calls this at each buffer boundary. The
// deferred queue is drained first (§5's "flushes them at buffer
// boundaries"), then the sample source (if any) fills the buffer.
func (s *AudioSink) Read(p []byte) (int, error) {
	s.queue.Perform()
	if s.source == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	return s.source(p)
}

// Play starts playback, which begins pulling buffers (and therefore
// flushing the deferred queue) on oto's internal thread.
func (s *AudioSink) Play() { s.player.Play() }

// Close stops playback and releases the player.
func (s *AudioSink) Close() error {
	if s.player != nil {
		return s.player.Close()
	}
	return nil
}
