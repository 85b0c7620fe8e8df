package core

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
)

var (
	// ErrRuntimeClosed is returned by scheduling operations after Close.
	ErrRuntimeClosed = errors.New("runtime is closed")

	// ErrStaleStream is returned when a stream handle refers to a stream
	// that has been destroyed (or never existed).
	ErrStaleStream = errors.New("stale stream handle")
)

// Runtime is the scheduler core of the CPU-hosted stream runtime.
//
// It owns a control stream for runtime-management tasks, a lazily-created
// null (default) stream, and a dynamic table of user streams. A single
// background worker goroutine drains them: control tasks first each
// iteration, then - when any stream has pending work - a full parallel drain
// of the null stream plus every user stream. Producers only append and block
// on completion handles; they never execute queued tasks themselves.
//
// Construct with NewRuntime and release with Close. The worker starts lazily
// on the first scheduling operation.
type Runtime struct {
	opts         Options
	log          Logger
	metrics      Metrics
	panicHandler PanicHandler

	control *Stream
	nullMu  sync.Mutex
	null    atomic.Pointer[Stream]
	streams *streamTable

	workerOnce sync.Once
	workerDone chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	tasksExecuted atomic.Uint64
	drains        atomic.Uint64
}

// NewRuntime creates a runtime with the given options. The background worker
// is not started until the first scheduling operation needs it.
func NewRuntime(opts Options) *Runtime {
	opts = opts.withDefaults()
	return &Runtime{
		opts:         opts,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		panicHandler: opts.PanicHandler,
		control:      newStream(StreamClassControl),
		streams:      newStreamTable(),
		workerDone:   make(chan struct{}),
	}
}

// =============================================================================
// Public scheduling operations
// =============================================================================

// NullStream returns the default stream, creating it on first access. The
// returned stream is stable for the runtime's lifetime. Ensures the worker
// is running.
func (r *Runtime) NullStream() *Stream {
	s := r.nullStream()
	r.ensureWorker()
	return s
}

// MakeStreamAsync schedules creation of a new user stream and returns a
// future yielding its handle. Creation runs on the worker goroutine as a
// control task, serialized against other control operations.
//
// After Close the future resolves immediately with an invalid handle.
func (r *Runtime) MakeStreamAsync() *Future[StreamHandle] {
	if r.closed.Load() {
		r.log.Warn("MakeStreamAsync after Close")
		return resolvedFuture(StreamHandle{})
	}

	fut := newFuture[StreamHandle]()
	r.pushControl(NewTask(func(ctx context.Context) {
		h := r.streams.insert(newStream(StreamClassUser))
		r.metrics.RecordStreamCount(r.streams.len())
		r.log.Debug("stream created", F("streams", r.streams.len()))
		fut.set(h)
	}))
	return fut
}

// DestroyStreamAsync schedules destruction of the stream for h and returns a
// completion handle resolved once the stream has been removed.
//
// Destruction policy: the handle goes stale the moment the stream is removed
// from the table, then any tasks still queued on it execute in FIFO order on
// the worker before the returned completion resolves. Queued tasks are never
// silently discarded.
//
// Destroying an already-destroyed (or invalid) handle is a no-op.
func (r *Runtime) DestroyStreamAsync(h StreamHandle) *Completion {
	if r.closed.Load() {
		r.log.Warn("DestroyStreamAsync after Close")
		return resolvedCompletion()
	}

	t := NewTask(func(ctx context.Context) {
		s, ok := r.streams.remove(h)
		if !ok {
			r.log.Warn("destroy of stale stream handle")
			return
		}
		// Run off any tasks enqueued before destruction.
		for _, qt := range s.swap() {
			r.invokeTask(ctx, qt, s)
		}
		r.metrics.RecordStreamCount(r.streams.len())
		r.log.Debug("stream destroyed", F("streams", r.streams.len()))
	})
	r.pushControl(t)
	return t.Completion()
}

// PushTask records event ev on a stream: it enqueues a completion-marking
// task whose execution updates the event's timestamp, and attaches the
// task's completion handle to the event.
//
// A nil handle records against the null stream and marks the event
// all-synchronizing, preserving legacy default-stream semantics.
func (r *Runtime) PushTask(ev *Event, h *StreamHandle) error {
	if r.closed.Load() {
		return ErrRuntimeClosed
	}

	t := NewTask(func(ctx context.Context) {
		ev.UpdateTimestamp()
	})

	// The done signal attaches only once the enqueue is certain; a rejected
	// push must leave the event untouched, or its Wait would hang on a task
	// that never runs.
	if h == nil {
		ev.MarkAllSynchronizing()
		ev.AddDoneSignal(t.Completion())
		r.nullStream().enqueue(t)
		r.ensureWorker()
		return nil
	}

	if !r.streams.withStream(*h, func(s *Stream) {
		ev.AddDoneSignal(t.Completion())
		s.enqueue(t)
	}) {
		return ErrStaleStream
	}
	r.ensureWorker()
	return nil
}

// PostTask enqueues arbitrary work on a stream and returns its completion
// handle. A nil handle targets the null stream. This is the primitive a
// stream-programming facade maps kernel launches and host callbacks onto.
func (r *Runtime) PostTask(h *StreamHandle, fn func(ctx context.Context)) (*Completion, error) {
	if r.closed.Load() {
		return nil, ErrRuntimeClosed
	}

	t := NewTask(fn)
	if h == nil {
		r.nullStream().enqueue(t)
		r.ensureWorker()
		return t.Completion(), nil
	}

	if !r.streams.withStream(*h, func(s *Stream) { s.enqueue(t) }) {
		return nil, ErrStaleStream
	}
	r.ensureWorker()
	return t.Completion(), nil
}

// Synchronize blocks until every task queued across every stream (control,
// null, and user) at the time of the call has executed. Implemented as a
// control task that performs a full drain; the caller waits on its
// completion.
//
// Must not be called from a task executing on the worker; that deadlocks.
func (r *Runtime) Synchronize(ctx context.Context) error {
	if r.closed.Load() {
		return ErrRuntimeClosed
	}

	t := NewTask(func(taskCtx context.Context) {
		r.drainAll(taskCtx)
	})
	r.pushControl(t)
	return t.Completion().Wait(ctx)
}

// Resolve returns the live stream for h, for callers that need direct
// Stream access (e.g. Stream.Apply) rather than the handle-based operations.
func (r *Runtime) Resolve(h StreamHandle) (*Stream, error) {
	if s, ok := r.streams.resolve(h); ok {
		return s, nil
	}
	return nil, ErrStaleStream
}

// =============================================================================
// Lifecycle
// =============================================================================

// Close runs the shutdown protocol: it enqueues a poison control task, waits
// for the worker goroutine to terminate (the worker performs one final full
// drain of every stream when it observes the poison signal), then waits on
// the poison task's own completion as a definite ordering check.
//
// Close is idempotent; subsequent calls return the first call's result.
// Scheduling operations issued after Close are rejected; operations issued
// concurrently with Close may be dropped without their handles resolving.
func (r *Runtime) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.log.Info("runtime closing")

		poison := NewSignalTask(func(ctx context.Context) Signal {
			return SignalShutdown
		})
		r.control.enqueue(poison)
		r.ensureWorker()

		select {
		case <-r.workerDone:
		case <-ctx.Done():
			r.closeErr = ctx.Err()
			return
		}

		r.closeErr = poison.Completion().Wait(ctx)
		r.log.Info("runtime closed", F("tasks_executed", r.tasksExecuted.Load()))
	})
	return r.closeErr
}

// Closed reports whether Close has been called.
func (r *Runtime) Closed() bool {
	return r.closed.Load()
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns a point-in-time snapshot of runtime state.
func (r *Runtime) Stats() RuntimeStats {
	var nullPending int
	if ns := r.null.Load(); ns != nil {
		nullPending = ns.Len()
	}

	users := r.streams.snapshot()
	userPending := 0
	for _, s := range users {
		userPending += s.Len()
	}

	return RuntimeStats{
		ControlPending: r.control.Len(),
		NullPending:    nullPending,
		UserStreams:    len(users),
		UserPending:    userPending,
		TasksExecuted:  r.tasksExecuted.Load(),
		Drains:         r.drains.Load(),
		Closed:         r.closed.Load(),
	}
}

// =============================================================================
// Worker loop
// =============================================================================

func (r *Runtime) nullStream() *Stream {
	if s := r.null.Load(); s != nil {
		return s
	}
	r.nullMu.Lock()
	defer r.nullMu.Unlock()
	if s := r.null.Load(); s != nil {
		return s
	}
	s := newStream(StreamClassNull)
	r.null.Store(s)
	return s
}

// pushControl enqueues a control task and wakes the worker.
func (r *Runtime) pushControl(t *Task) {
	r.control.enqueue(t)
	r.ensureWorker()
}

func (r *Runtime) ensureWorker() {
	r.workerOnce.Do(func() {
		go r.workerLoop()
	})
}

func (r *Runtime) workerLoop() {
	defer close(r.workerDone)

	ctx := context.WithValue(context.Background(), runtimeKey, r)
	r.log.Debug("worker started")

	for {
		// Control tasks run before any null/user-stream work is considered,
		// giving management operations priority each cycle.
		for _, t := range r.control.swap() {
			if r.invokeTask(ctx, t, r.control) == SignalShutdown {
				r.drainAll(ctx)
				r.log.Debug("worker stopped")
				return
			}
		}

		if r.workPending() {
			r.drainAll(ctx)
		} else {
			r.spinBackoff()
		}
	}
}

// workPending implements the null-stream priming rule: a non-empty null
// stream alone makes work pending, without looking at user streams. Only
// when the null stream is empty are user streams scanned.
func (r *Runtime) workPending() bool {
	if r.nullStream().pending() {
		return true
	}
	for _, s := range r.streams.snapshot() {
		if s.pending() {
			return true
		}
	}
	return false
}

// drainAll performs one full drain generation: the null stream and every
// user stream are swapped out and executed on their own goroutines, all
// joined before the worker proceeds. Per-stream FIFO order holds within each
// helper; there is no ordering across streams.
//
// The drain covers every stream, not just the non-empty ones; one generation
// corresponds to one device-wide synchronization point.
func (r *Runtime) drainAll(ctx context.Context) {
	start := time.Now()
	users := r.streams.snapshot()

	var wg conc.WaitGroup
	ns := r.nullStream()
	wg.Go(func() { r.drainStream(ctx, ns) })
	for _, s := range users {
		wg.Go(func() { r.drainStream(ctx, s) })
	}
	wg.Wait()

	r.drains.Add(1)
	r.metrics.RecordDrain(len(users)+1, time.Since(start))
}

// drainStream swaps out one stream's pending generation and executes it in
// enqueue order.
func (r *Runtime) drainStream(ctx context.Context, s *Stream) {
	for _, t := range s.swap() {
		r.invokeTask(ctx, t, s)
	}
}

// invokeTask runs one task, recovering panics so a defective task cannot
// take down the worker or other streams.
func (r *Runtime) invokeTask(ctx context.Context, t *Task, s *Stream) (sig Signal) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.RecordTaskPanic(s.Class(), rec)
			r.panicHandler.HandlePanic(ctx, s, rec, debug.Stack())
			sig = SignalCompleted
		}
		r.tasksExecuted.Add(1)
		r.metrics.RecordTaskExecuted(s.Class(), time.Since(start))
	}()
	return t.invoke(ctx)
}

// spinBackoff idles the worker with a randomized number of scheduler yields.
// Yields rather than sleeps keep wake latency bounded.
func (r *Runtime) spinBackoff() {
	n := r.opts.SpinBackoffMin
	if span := r.opts.SpinBackoffMax - r.opts.SpinBackoffMin; span > 0 {
		n += rand.IntN(span + 1)
	}
	for range n {
		runtime.Gosched()
	}
	r.metrics.RecordBackoff(n)
}
