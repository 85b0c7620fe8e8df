package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Event records "work enqueued up to this point has completed".
//
// An Event is created by the caller-facing layer and handed to
// Runtime.PushTask, which attaches a completion-marking task to the chosen
// stream. The event's timestamp updates when that task runs; its done signals
// resolve the same moment.
type Event struct {
	// completion timestamp, unix nanos; only ever moves forward
	stamp atomic.Int64

	// set when the event was recorded with no explicit stream
	allSync atomic.Bool

	mu      sync.Mutex
	signals []*Completion
}

// NewEvent creates an unrecorded event.
func NewEvent() *Event {
	return &Event{}
}

// MarkAllSynchronizing flags the event as recorded against the null stream,
// meaning it synchronizes against all streams, not just one.
func (e *Event) MarkAllSynchronizing() {
	e.allSync.Store(true)
}

// AllSynchronizing reports whether the event carries cross-stream
// synchronization intent.
func (e *Event) AllSynchronizing() bool {
	return e.allSync.Load()
}

// AddDoneSignal attaches a completion handle the event must wait on.
// An event recorded on several streams accumulates one signal per recording.
func (e *Event) AddDoneSignal(c *Completion) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signals = append(e.signals, c)
}

// UpdateTimestamp records the logical completion point. Called by the
// completion-marking task when the worker runs it. The timestamp never moves
// backwards, even when recordings complete out of order.
func (e *Event) UpdateTimestamp() {
	now := time.Now().UnixNano()
	for {
		prev := e.stamp.Load()
		if now <= prev || e.stamp.CompareAndSwap(prev, now) {
			return
		}
	}
}

// Timestamp returns the last recorded completion point, or the zero time if
// the event has not completed yet.
func (e *Event) Timestamp() time.Time {
	ns := e.stamp.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Ready reports whether every attached done signal has resolved. An event
// with no recordings is trivially ready.
func (e *Event) Ready() bool {
	for _, c := range e.snapshotSignals() {
		if !c.Resolved() {
			return false
		}
	}
	return true
}

// Wait blocks until every attached done signal resolves or ctx is cancelled.
// Signals attached after Wait starts are not waited for.
func (e *Event) Wait(ctx context.Context) error {
	for _, c := range e.snapshotSignals() {
		if err := c.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Event) snapshotSignals() []*Completion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Completion(nil), e.signals...)
}
