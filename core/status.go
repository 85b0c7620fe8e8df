package core

import (
	"context"
	"errors"
	"sync/atomic"
)

// Status is the opaque per-caller status code threaded through the runtime,
// mirroring how GPU runtime APIs report the outcome of the most recent call
// on the calling thread. The runtime never interprets the value beyond
// StatusSuccess being the zero state.
type Status int32

const (
	StatusSuccess Status = iota
	StatusInvalidHandle
	StatusNotReady
	StatusShutdown
)

// StatusCell holds the last-error code for one caller context. Reads and
// exchanges are atomic from that caller's point of view; cells are never
// shared across caller contexts.
type StatusCell struct {
	v atomic.Int32
}

// Load returns the current status.
func (c *StatusCell) Load() Status {
	return Status(c.v.Load())
}

// Exchange stores s and returns the previous status.
func (c *StatusCell) Exchange(s Status) Status {
	return Status(c.v.Swap(int32(s)))
}

// =============================================================================
// Context plumbing
// =============================================================================

type statusKeyType struct{}

var statusKey statusKeyType

// WithStatusCell attaches a fresh last-error cell to ctx, if it does not
// already carry one. Each caller context (goroutine, request, etc.) should
// set up its own cell once; sharing a derived context shares the cell.
func WithStatusCell(ctx context.Context) context.Context {
	if _, ok := ctx.Value(statusKey).(*StatusCell); ok {
		return ctx
	}
	return context.WithValue(ctx, statusKey, new(StatusCell))
}

// StatusCellFrom returns the cell carried by ctx, or nil.
func StatusCellFrom(ctx context.Context) *StatusCell {
	if c, ok := ctx.Value(statusKey).(*StatusCell); ok {
		return c
	}
	return nil
}

// LastError returns the calling context's current status code.
// A context without a cell reads StatusSuccess.
func LastError(ctx context.Context) Status {
	if c := StatusCellFrom(ctx); c != nil {
		return c.Load()
	}
	return StatusSuccess
}

// SetLastError stores s on the calling context's cell and returns the
// previous value. Writes to a context without a cell are discarded.
func SetLastError(ctx context.Context, s Status) Status {
	if c := StatusCellFrom(ctx); c != nil {
		return c.Exchange(s)
	}
	return StatusSuccess
}

// StatusFromError maps runtime errors onto status codes for the last-error
// channel. Callers building a GPU-style API shim typically follow every
// runtime call with SetLastError(ctx, StatusFromError(err)).
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrStaleStream):
		return StatusInvalidHandle
	case errors.Is(err, ErrRuntimeClosed):
		return StatusShutdown
	default:
		// Incomplete waits (context cancellation, deadline) read as not ready.
		return StatusNotReady
	}
}
