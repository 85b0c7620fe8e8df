package core

import "sync"

// StreamHandle identifies a user stream by slab index plus generation.
// Handles stay valid until the stream is destroyed; a handle to a destroyed
// stream fails resolution instead of dangling. The zero handle is never
// valid.
type StreamHandle struct {
	index uint32
	gen   uint32
}

// Valid reports whether the handle could ever have referred to a stream.
// A true result does not imply the stream is still live.
func (h StreamHandle) Valid() bool {
	return h.gen != 0
}

type tableSlot struct {
	gen    uint32
	stream *Stream
}

// streamTable is a stable-address arena for user streams. Slots are recycled
// through a free list and the generation counter bumps on removal, so a stale
// handle can never resolve to a stream that reuses its slot.
//
// Insert and remove happen only on the worker goroutine (via control tasks);
// resolution and snapshotting happen concurrently from producers and drain
// helpers, hence the read/write lock.
type streamTable struct {
	mu    sync.RWMutex
	slots []tableSlot
	free  []uint32
	live  int
}

func newStreamTable() *streamTable {
	return &streamTable{}
}

func (t *streamTable) insert(s *Stream) StreamHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.live++
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[idx].gen++
		t.slots[idx].stream = s
		return StreamHandle{index: idx, gen: t.slots[idx].gen}
	}

	t.slots = append(t.slots, tableSlot{gen: 1, stream: s})
	return StreamHandle{index: uint32(len(t.slots) - 1), gen: 1}
}

// remove detaches the stream for h. The slot's generation is bumped again so
// the handle goes stale immediately; any queued tasks remain on the returned
// stream for the caller to dispose of.
func (t *streamTable) remove(h StreamHandle) (*Stream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.validLocked(h) {
		return nil, false
	}

	s := t.slots[h.index].stream
	t.slots[h.index].stream = nil
	t.slots[h.index].gen++
	t.free = append(t.free, h.index)
	t.live--
	return s, true
}

// resolve returns the live stream for h, if any.
func (t *streamTable) resolve(h StreamHandle) (*Stream, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.validLocked(h) {
		return nil, false
	}
	return t.slots[h.index].stream, true
}

// withStream runs fn on the live stream for h while holding the table read
// lock. Removal takes the write lock, so fn can never run against a stream
// that has already been detached.
func (t *streamTable) withStream(h StreamHandle, fn func(s *Stream)) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.validLocked(h) {
		return false
	}
	fn(t.slots[h.index].stream)
	return true
}

// snapshot returns the live streams at a point in time. The drain helpers
// iterate the snapshot without holding the table lock.
func (t *streamTable) snapshot() []*Stream {
	t.mu.RLock()
	defer t.mu.RUnlock()

	streams := make([]*Stream, 0, t.live)
	for i := range t.slots {
		if s := t.slots[i].stream; s != nil {
			streams = append(streams, s)
		}
	}
	return streams
}

func (t *streamTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

func (t *streamTable) validLocked(h StreamHandle) bool {
	return h.gen != 0 &&
		int(h.index) < len(t.slots) &&
		t.slots[h.index].gen == h.gen &&
		t.slots[h.index].stream != nil
}
