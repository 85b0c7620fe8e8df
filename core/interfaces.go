package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
//
// A panicking task is a programming defect in client code, not a recoverable
// runtime condition. The worker recovers so the panic cannot corrupt other
// streams' state, reports it here, and carries on with the rest of the
// generation.
//
// Implementations should be thread-safe as they may be called concurrently
// (one drain helper per stream during a full drain).
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context from the panicked task
	// - stream: The stream the task was drained from
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, stream *Stream, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, stream *Stream, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Stream %s/%s] Panic: %v\nStack trace:\n%s",
		stream.Class(), stream.ID(), panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting runtime execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting the worker loop.
type Metrics interface {
	// RecordTaskExecuted records one task invocation on a stream class.
	RecordTaskExecuted(class StreamClass, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(class StreamClass, panicInfo any)

	// RecordDrain records one full-drain generation: how many streams were
	// drained in parallel and how long the whole generation took.
	RecordDrain(streams int, duration time.Duration)

	// RecordBackoff records one backoff episode and its spin count.
	RecordBackoff(spins int)

	// RecordStreamCount records the number of live user streams after a
	// create or destroy operation.
	RecordStreamCount(n int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskExecuted(class StreamClass, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(class StreamClass, panicInfo any)             {}
func (m *NilMetrics) RecordDrain(streams int, duration time.Duration)              {}
func (m *NilMetrics) RecordBackoff(spins int)                                      {}
func (m *NilMetrics) RecordStreamCount(n int)                                      {}

// =============================================================================
// Options: Configuration for Runtime
// =============================================================================

const (
	// Default bounds for the randomized backoff spin, inclusive.
	// The worker draws a count uniformly from this range and yields that many
	// times when no stream has pending work.
	DefaultSpinBackoffMin = 3
	DefaultSpinBackoffMax = 1031
)

// Options holds configuration for a Runtime. All fields are optional; zero
// values fall back to the defaults below.
type Options struct {
	// Logger receives runtime lifecycle and diagnostics logs. Defaults to DefaultLogger.
	Logger Logger

	// Metrics records worker activity. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// SpinBackoffMin / SpinBackoffMax bound the randomized idle spin.
	// Both default to DefaultSpinBackoffMin / DefaultSpinBackoffMax.
	SpinBackoffMin int
	SpinBackoffMax int
}

// DefaultOptions returns the default runtime configuration.
func DefaultOptions() Options {
	return Options{
		Logger:         NewDefaultLogger(),
		Metrics:        &NilMetrics{},
		PanicHandler:   &DefaultPanicHandler{},
		SpinBackoffMin: DefaultSpinBackoffMin,
		SpinBackoffMax: DefaultSpinBackoffMax,
	}
}

// withDefaults fills unset fields from DefaultOptions.
func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = NewDefaultLogger()
	}
	if o.Metrics == nil {
		o.Metrics = &NilMetrics{}
	}
	if o.PanicHandler == nil {
		o.PanicHandler = &DefaultPanicHandler{}
	}
	if o.SpinBackoffMin <= 0 {
		o.SpinBackoffMin = DefaultSpinBackoffMin
	}
	if o.SpinBackoffMax < o.SpinBackoffMin {
		o.SpinBackoffMax = max(DefaultSpinBackoffMax, o.SpinBackoffMin)
	}
	return o
}
