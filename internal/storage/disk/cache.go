package disk

import (
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/intuitionamiga/clkcore/internal/asyncqueue"
)

// Logger is used for recoverable background-thread failures (write-back
// errors) that have nowhere else to propagate to — there is no caller
// waiting on the result of a deferred write. Overridable for hosts that
// want their own sink; defaults to the standard logger.
var Logger = log.Default()

// Cache is the DiskImage cache + write-back layer of §4.7: a bounded LRU of
// (head, position) -> Track sitting in front of an ImageSource, with writes
// serialized back to the source on a background AsyncTaskQueue.
//
// Two locks are involved, matching §5's "Shared resources": fileMu
// serializes all calls into source (file I/O), while the LRU's own
// internal locking serializes the cached-track map. StoreTrack updates the
// map first and takes fileMu later, on the write-back goroutine; the two
// locks are never held together.
type Cache struct {
	source ImageSource

	fileMu sync.Mutex

	tracks *lru.Cache[Address, Track]
	group  singleflight.Group

	writeBack *asyncqueue.Queue
}

// NewCache wraps source with an LRU of the given capacity (tracks held in
// memory) and a background write-back queue.
func NewCache(source ImageSource, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = 64
	}
	tracks, err := lru.New[Address, Track](capacity)
	if err != nil {
		return nil, fmt.Errorf("disk: building track cache: %w", err)
	}
	return &Cache{
		source:    source,
		tracks:    tracks,
		writeBack: asyncqueue.NewQueue(16),
	}, nil
}

func (c *Cache) HeadCount() int     { return c.source.HeadCount() }
func (c *Cache) PositionCount() int { return c.source.PositionCount() }
func (c *Cache) IsReadOnly() bool   { return c.source.IsReadOnly() }

func keyString(addr Address) string {
	return fmt.Sprintf("%d:%d", addr.Head, addr.Position)
}

// TrackAt looks up (head, position) in the cache; on miss it calls the
// image's uncached loader under the file-access mutex and inserts the
// result (§4.7). Concurrent misses on the same address are collapsed by
// singleflight so only one goroutine touches the backing file.
func (c *Cache) TrackAt(addr Address) (Track, bool) {
	if t, ok := c.tracks.Get(addr); ok {
		return t, true
	}

	result, err, _ := c.group.Do(keyString(addr), func() (interface{}, error) {
		c.fileMu.Lock()
		t, err := c.source.LoadTrack(addr)
		c.fileMu.Unlock()
		return t, err
	})
	if err != nil {
		Logger.Printf("disk: load track at head=%d position=%d: %v", addr.Head, addr.Position, err)
		return nil, false
	}
	track := result.(Track)
	c.tracks.Add(addr, track)
	return track, true
}

// StoreTrack replaces the cached entry for addr and enqueues a background
// task that serializes the modified track back to the source under the
// file-access mutex (§4.7).
func (c *Cache) StoreTrack(addr Address, t Track) error {
	c.tracks.Add(addr, t)
	c.writeBack.Enqueue(func() {
		c.fileMu.Lock()
		defer c.fileMu.Unlock()
		if err := c.source.StoreTrack(addr, t); err != nil {
			Logger.Printf("disk: write back track at head=%d position=%d: %v", addr.Head, addr.Position, err)
		}
	})
	return nil
}

// Flush drains the write-back queue synchronously (§4.7: "on shutdown or
// flush_tracks(): drain the queue synchronously").
func (c *Cache) Flush() {
	c.writeBack.Flush()
}

// Close flushes pending writes and stops the background worker. Call once
// the image is no longer needed — §5: "Writes complete before the
// DiskImage is dropped (destructor flushes)".
func (c *Cache) Close() {
	c.writeBack.Close()
}
