package streamrt

import (
	"context"
	"sync"

	"github.com/hostgpu/go-stream-runtime/core"
)

// =============================================================================
// Default Runtime Helper (process-wide instance)
// =============================================================================

// The original design kept the runtime in process-global static state.
// Here the runtime is an explicit object (see core.NewRuntime); this helper
// keeps one process-wide instance for facades that expect the GPU-runtime
// calling convention of implicit global state.

var (
	defaultRuntime *core.Runtime
	globalMu       sync.Mutex
)

// InitDefaultRuntime initializes the process-wide runtime instance.
// Subsequent calls are no-ops until ShutdownDefaultRuntime.
func InitDefaultRuntime(opts core.Options) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if defaultRuntime != nil {
		return // Already initialized
	}
	defaultRuntime = core.NewRuntime(opts)
}

// Default returns the process-wide runtime instance.
// It panics if InitDefaultRuntime has not been called.
func Default() *core.Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if defaultRuntime == nil {
		panic("streamrt: default runtime not initialized. Call InitDefaultRuntime() first.")
	}
	return defaultRuntime
}

// ShutdownDefaultRuntime runs the shutdown protocol on the process-wide
// instance and releases it. Safe to call when never initialized.
func ShutdownDefaultRuntime(ctx context.Context) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if defaultRuntime == nil {
		return nil
	}
	err := defaultRuntime.Close(ctx)
	defaultRuntime = nil
	return err
}

// =============================================================================
// Convenience wrappers over the default runtime
// =============================================================================

// NullStream returns the default runtime's null stream.
func NullStream() *core.Stream {
	return Default().NullStream()
}

// MakeStreamAsync creates a user stream on the default runtime.
func MakeStreamAsync() *core.Future[core.StreamHandle] {
	return Default().MakeStreamAsync()
}

// DestroyStreamAsync destroys a user stream on the default runtime.
func DestroyStreamAsync(h core.StreamHandle) *core.Completion {
	return Default().DestroyStreamAsync(h)
}

// PushTask records ev on the stream for h (nil = null stream) on the default
// runtime.
func PushTask(ev *core.Event, h *core.StreamHandle) error {
	return Default().PushTask(ev, h)
}

// PostTask enqueues work on the stream for h (nil = null stream) on the
// default runtime.
func PostTask(h *core.StreamHandle, fn func(ctx context.Context)) (*core.Completion, error) {
	return Default().PostTask(h, fn)
}

// Synchronize blocks until all currently queued work on the default runtime
// has executed.
func Synchronize(ctx context.Context) error {
	return Default().Synchronize(ctx)
}
