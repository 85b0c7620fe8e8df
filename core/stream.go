package core

import (
	"sync"

	"github.com/google/uuid"
)

const (
	defaultStreamCap    = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// StreamClass distinguishes the three usage classes of the one Stream type.
// The class is also the label used in logs and metrics.
type StreamClass string

const (
	// StreamClassControl: the runtime-internal stream carrying management
	// tasks (create/destroy stream, synchronize, shutdown).
	StreamClassControl StreamClass = "control"

	// StreamClassNull: the implicit default stream used when a caller
	// supplies none. Work on it implies device-wide synchronization intent.
	StreamClassNull StreamClass = "null"

	// StreamClassUser: dynamically created caller-owned streams.
	StreamClassUser StreamClass = "user"
)

// =============================================================================
// Stream: an ordered, exclusively-mutable queue of Tasks
// =============================================================================

// Stream is a FIFO sequence of Tasks guarded by exclusive-access semantics.
//
// Apply is the only access path to the task sequence. The worker uses it to
// swap out an entire pending generation in one atomic step, so tasks execute
// outside the lock and producers never observe a partially-drained queue.
type Stream struct {
	id    string
	class StreamClass

	mu    sync.Mutex
	tasks []*Task
}

func newStream(class StreamClass) *Stream {
	return &Stream{
		id:    uuid.NewString(),
		class: class,
		tasks: make([]*Task, 0, defaultStreamCap),
	}
}

// ID returns the stream's identity label.
func (s *Stream) ID() string {
	return s.id
}

// Class returns the stream's usage class.
func (s *Stream) Class() StreamClass {
	return s.class
}

// Apply runs fn with exclusive access to the stream's task sequence.
// fn may inspect, append to, or swap out the sequence; it must not retain the
// slice pointer past its return, and it must not block on work executed by
// the runtime worker.
func (s *Stream) Apply(fn func(tasks *[]*Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.tasks)
}

// enqueue appends a task to the stream in FIFO position.
func (s *Stream) enqueue(t *Task) {
	s.Apply(func(tasks *[]*Task) {
		*tasks = append(*tasks, t)
	})
}

// swap atomically takes the entire pending generation, leaving the stream
// empty. The returned tasks are owned by the caller. Returns nil when the
// stream has no pending tasks, without touching the backing array.
func (s *Stream) swap() []*Task {
	var batch []*Task
	s.Apply(func(tasks *[]*Task) {
		if len(*tasks) == 0 {
			return
		}
		batch = *tasks
		*tasks = freshTaskSlice(cap(*tasks), len(*tasks))
	})
	return batch
}

// pending reports whether the stream has queued tasks.
func (s *Stream) pending() bool {
	var r bool
	s.Apply(func(tasks *[]*Task) {
		r = len(*tasks) != 0
	})
	return r
}

// Len returns the number of queued tasks.
func (s *Stream) Len() int {
	var n int
	s.Apply(func(tasks *[]*Task) {
		n = len(*tasks)
	})
	return n
}

// freshTaskSlice picks the capacity for the slice replacing a swapped-out
// generation. Shrinks when the previous generation left a large, mostly
// unused backing array behind.
func freshTaskSlice(oldCap, oldLen int) []*Task {
	if oldCap < compactMinCap || oldLen*compactShrinkFactor >= oldCap {
		return make([]*Task, 0, max(oldCap, defaultStreamCap))
	}
	return make([]*Task, 0, max(oldCap/2, defaultStreamCap))
}
