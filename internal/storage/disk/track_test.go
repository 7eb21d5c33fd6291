package disk

import "testing"

func TestHeadPositionWholeTrackAndQuarterOffset(t *testing.T) {
	p := HeadPosition(4*10 + 1) // track 10, quarter 1
	if p.WholeTrack() != 10 {
		t.Fatalf("expected whole track 10, got %d", p.WholeTrack())
	}
	if p.QuarterOffset() != 1 {
		t.Fatalf("expected quarter offset 1, got %d", p.QuarterOffset())
	}
}

func TestHeadPositionStepByClampsAtZero(t *testing.T) {
	p := HeadPosition(2)
	stepped := p.StepBy(-8)
	if stepped != 0 {
		t.Fatalf("expected clamp to 0, got %d", stepped)
	}
}

func TestHeadPositionIsTrackZero(t *testing.T) {
	if !HeadPosition(0).IsTrackZero() {
		t.Fatalf("expected position 0 to report track zero")
	}
	if HeadPosition(4).IsTrackZero() {
		t.Fatalf("expected non-zero position to not report track zero")
	}
}

func TestSynthesizedIndexTrackEmitsOnlyIndexHoles(t *testing.T) {
	track := NewSynthesizedIndexTrack(1000000)
	for i := 0; i < 3; i++ {
		event := track.NextEvent()
		if event.Kind != IndexHole {
			t.Fatalf("expected synthesized track to emit only IndexHole, got %v", event.Kind)
		}
		if !event.Length.Equal(event.Length) {
			t.Fatalf("length must be self-consistent")
		}
	}
}

func TestSynthesizedIndexTrackCloneIsIndependent(t *testing.T) {
	track := NewSynthesizedIndexTrack(1000)
	clone := track.Clone()
	if clone == track {
		t.Fatalf("expected Clone to return a distinct value")
	}
}
