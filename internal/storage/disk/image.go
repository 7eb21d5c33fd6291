package disk

// ImageSource is the uncached loader a concrete disk-image format
// implements (§6's DSK/SSD/DSD/ADF/G64/OricDSK/Mac parsers): given an
// address, read the track's raw bytes off the backing file and decode them
// into a Track. Cache wraps one of these with the LRU + write-back layer
// described in §4.7.
type ImageSource interface {
	HeadCount() int
	PositionCount() int
	IsReadOnly() bool
	// LoadTrack performs the uncached, file-touching read. Callers must
	// hold the cache's file-access mutex while calling this (§4.7, §5).
	LoadTrack(addr Address) (Track, error)
	// StoreTrack performs the uncached, file-touching write. Callers must
	// hold the cache's file-access mutex while calling this.
	StoreTrack(addr Address, t Track) error
}

// DiskImage is what a Drive attaches to: head/position counts and a
// TrackAt lookup, plus a StoreTrack write path (§3, §4.7). The concrete
// implementation a Drive holds is always a *Cache wrapping an ImageSource,
// but the interface keeps that indirection out of Drive's own code.
type DiskImage interface {
	HeadCount() int
	PositionCount() int
	IsReadOnly() bool
	TrackAt(addr Address) (Track, bool)
	StoreTrack(addr Address, t Track) error
	// Flush drains any pending asynchronous write-back (§4.7: "on shutdown
	// or flush_tracks(): drain the queue synchronously").
	Flush()
}
