package disk

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/intuitionamiga/clkcore/internal/rational"
)

type fakeImageSource struct {
	heads     int
	positions int
	readOnly  bool

	loadCount  int64
	storeCount int64
	stored     map[Address]Track
}

func newFakeImageSource() *fakeImageSource {
	return &fakeImageSource{heads: 1, positions: 80, stored: map[Address]Track{}}
}

func (f *fakeImageSource) HeadCount() int     { return f.heads }
func (f *fakeImageSource) PositionCount() int { return f.positions }
func (f *fakeImageSource) IsReadOnly() bool   { return f.readOnly }

func (f *fakeImageSource) LoadTrack(addr Address) (Track, error) {
	atomic.AddInt64(&f.loadCount, 1)
	if t, ok := f.stored[addr]; ok {
		return t, nil
	}
	seg := NewPCMSegment(8, rational.New(1, 1000))
	seg.SetBit(0, true)
	return NewPCMTrack(seg), nil
}

func (f *fakeImageSource) StoreTrack(addr Address, t Track) error {
	atomic.AddInt64(&f.storeCount, 1)
	f.stored[addr] = t
	return nil
}

func TestCacheLoadsOnceAndServesFromMemoryOnHit(t *testing.T) {
	source := newFakeImageSource()
	cache, err := NewCache(source, 8)
	if err != nil {
		t.Fatalf("unexpected error building cache: %v", err)
	}
	defer cache.Close()

	addr := Address{Head: 0, Position: 4}
	if _, ok := cache.TrackAt(addr); !ok {
		t.Fatalf("expected a track on first lookup")
	}
	if _, ok := cache.TrackAt(addr); !ok {
		t.Fatalf("expected a track on second lookup")
	}
	if atomic.LoadInt64(&source.loadCount) != 1 {
		t.Fatalf("expected exactly one uncached load, got %d", source.loadCount)
	}
}

func TestCacheStoreTrackWritesBackAsynchronouslyThenFlushCompletes(t *testing.T) {
	source := newFakeImageSource()
	cache, err := NewCache(source, 8)
	if err != nil {
		t.Fatalf("unexpected error building cache: %v", err)
	}
	defer cache.Close()

	addr := Address{Head: 0, Position: 10}
	seg := NewPCMSegment(8, rational.New(1, 1000))
	track := NewPCMTrack(seg)

	if err := cache.StoreTrack(addr, track); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Flush()

	if atomic.LoadInt64(&source.storeCount) != 1 {
		t.Fatalf("expected exactly one write-back after Flush, got %d", source.storeCount)
	}
	if _, ok := source.stored[addr]; !ok {
		t.Fatalf("expected track to have been written back to the source")
	}
}

func TestCacheConcurrentMissesCollapseIntoOneLoad(t *testing.T) {
	source := newFakeImageSource()
	cache, err := NewCache(source, 8)
	if err != nil {
		t.Fatalf("unexpected error building cache: %v", err)
	}
	defer cache.Close()

	addr := Address{Head: 0, Position: 1}
	done := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		go func() {
			cache.TrackAt(addr)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 16; i++ {
		<-done
	}
	if atomic.LoadInt64(&source.loadCount) > 2 {
		t.Fatalf("expected singleflight to collapse concurrent misses, got %d loads", source.loadCount)
	}
}

func TestCacheKeyStringDistinguishesHeadAndPosition(t *testing.T) {
	a := keyString(Address{Head: 0, Position: 1})
	b := keyString(Address{Head: 1, Position: 0})
	if a == b {
		t.Fatalf("expected distinct keys for distinct addresses, got %q and %q", a, b)
	}
	if a != fmt.Sprintf("%d:%d", 0, 1) {
		t.Fatalf("unexpected key format: %q", a)
	}
}
