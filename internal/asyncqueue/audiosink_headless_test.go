//go:build headless

package asyncqueue

import "testing"

func TestAudioSinkDrainsQueueOnRead(t *testing.T) {
	q := NewDeferringQueue()
	var flushed bool
	q.Enqueue(func() { flushed = true })

	sink, err := NewAudioSink(q, 44100, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error constructing headless sink: %v", err)
	}
	buf := make([]byte, 16)
	n, err := sink.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("unexpected read result: n=%d err=%v", n, err)
	}
	if !flushed {
		t.Fatalf("expected queue to be drained on Read")
	}
}
