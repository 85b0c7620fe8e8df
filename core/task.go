package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// Signal is the outcome a task callable reports to the worker loop.
type Signal int

const (
	// SignalCompleted: the task finished normally.
	SignalCompleted Signal = iota

	// SignalShutdown: the task requests runtime shutdown.
	// Only the poison task enqueued during Close emits this; the worker
	// performs one final full drain and terminates when it observes it.
	SignalShutdown
)

// TaskFunc is the full form of a task callable. Most callers use plain
// func(ctx) closures via NewTask; the signal-returning form exists for
// runtime-internal control tasks.
type TaskFunc func(ctx context.Context) Signal

// =============================================================================
// Task: one-shot unit of deferred work with a completion signal
// =============================================================================

// Task wraps a callable together with its completion handle.
//
// A Task is invoked at most once. Once enqueued on a Stream the stream owns
// it exclusively until the worker swaps it out for execution; after invocation
// the Task is discarded.
type Task struct {
	fn      TaskFunc
	done    *Completion
	invoked atomic.Bool
}

// NewTask creates a Task from a plain closure. The task reports
// SignalCompleted when the closure returns.
func NewTask(fn func(ctx context.Context)) *Task {
	return NewSignalTask(func(ctx context.Context) Signal {
		fn(ctx)
		return SignalCompleted
	})
}

// NewSignalTask creates a Task whose callable chooses the signal it reports.
func NewSignalTask(fn TaskFunc) *Task {
	return &Task{fn: fn, done: newCompletion()}
}

// Completion returns the handle resolved when the task is invoked.
// It is valid to hold the handle across enqueue and wait on it from any
// goroutine.
func (t *Task) Completion() *Completion {
	return t.done
}

// invoke runs the callable once and resolves the completion handle after it
// returns. Resolution happens even if the callable panics; the panic is
// re-raised for the caller (the worker loop) to handle.
func (t *Task) invoke(ctx context.Context) Signal {
	if !t.invoked.CompareAndSwap(false, true) {
		return SignalCompleted
	}
	defer t.done.resolve()

	return t.fn(ctx)
}

// =============================================================================
// Completion: resolved-exactly-once signal producers can block on
// =============================================================================

// Completion is a one-shot completion handle. The zero value is not usable;
// handles are obtained from Task.Completion or returned by Runtime operations.
type Completion struct {
	once sync.Once
	done chan struct{}
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// resolvedCompletion returns an already-resolved handle. Used when an
// operation is rejected but the signature still promises a handle.
func resolvedCompletion() *Completion {
	c := newCompletion()
	c.resolve()
	return c
}

func (c *Completion) resolve() {
	c.once.Do(func() { close(c.done) })
}

// Done returns a channel closed when the completion resolves.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Resolved reports whether the completion has already resolved.
func (c *Completion) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks the calling goroutine until the completion resolves or ctx is
// cancelled. The worker never calls Wait; only producers do.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Future: completion handle carrying a value
// =============================================================================

// Future resolves exactly once with a value of type T.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolvedFuture returns a future already resolved with v.
func resolvedFuture[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.set(v)
	return f
}

func (f *Future[T]) set(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Done returns a channel closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is cancelled.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// =============================================================================
// Context Helper
// =============================================================================

type runtimeKeyType struct{}

var runtimeKey runtimeKeyType

// GetCurrentRuntime returns the Runtime executing the current task, or nil if
// ctx did not come from a worker goroutine. Tasks use this to post follow-up
// work without capturing the runtime in every closure.
func GetCurrentRuntime(ctx context.Context) *Runtime {
	if v := ctx.Value(runtimeKey); v != nil {
		return v.(*Runtime)
	}
	return nil
}
