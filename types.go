package streamrt

import "github.com/hostgpu/go-stream-runtime/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the streamrt package for most use cases.

// Runtime is the scheduler core: streams, worker, synchronization.
type Runtime = core.Runtime

// Options configures a Runtime.
type Options = core.Options

// Task is the one-shot unit of deferred work.
type Task = core.Task

// Completion is a resolved-exactly-once handle producers block on.
type Completion = core.Completion

// Stream is an ordered, exclusively-mutable queue of Tasks.
type Stream = core.Stream

// StreamClass distinguishes control, null, and user streams.
type StreamClass = core.StreamClass

// StreamHandle is a generation-checked reference to a user stream.
type StreamHandle = core.StreamHandle

// Event is a recorded completion point.
type Event = core.Event

// Status is the opaque per-caller last-error code.
type Status = core.Status

// RuntimeStats is a point-in-time snapshot of runtime state.
type RuntimeStats = core.RuntimeStats

// Stream class constants
const (
	StreamClassControl StreamClass = core.StreamClassControl
	StreamClassNull    StreamClass = core.StreamClassNull
	StreamClassUser    StreamClass = core.StreamClassUser
)

// Status constants
const (
	StatusSuccess       Status = core.StatusSuccess
	StatusInvalidHandle Status = core.StatusInvalidHandle
	StatusNotReady      Status = core.StatusNotReady
	StatusShutdown      Status = core.StatusShutdown
)

// Convenience constructors and helpers
var (
	NewRuntime     = core.NewRuntime
	DefaultOptions = core.DefaultOptions
	NewEvent       = core.NewEvent

	// Per-caller-context last-error plumbing
	WithStatusCell  = core.WithStatusCell
	LastError       = core.LastError
	SetLastError    = core.SetLastError
	StatusFromError = core.StatusFromError

	// GetCurrentRuntime retrieves the Runtime executing the current task.
	GetCurrentRuntime = core.GetCurrentRuntime
)

// Sentinel errors
var (
	ErrRuntimeClosed = core.ErrRuntimeClosed
	ErrStaleStream   = core.ErrStaleStream
)

// Future is re-exported for handles returned by MakeStreamAsync.
type Future[T any] = core.Future[T]
