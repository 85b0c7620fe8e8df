// Package streamrt provides a CPU-hosted emulation of a GPU compute-stream
// runtime.
//
// Client code written against a GPU-stream programming model schedules units
// of asynchronous work onto logical execution contexts (streams). This
// library runs that model on ordinary CPU goroutines while preserving the
// guarantees the model promises: per-stream FIFO ordering, cross-stream
// concurrency, and device-style synchronization primitives (events, global
// synchronize, default/null-stream semantics).
//
// # Quick Start
//
// Initialize the default runtime at application startup:
//
//	streamrt.InitDefaultRuntime(core.DefaultOptions())
//	defer streamrt.ShutdownDefaultRuntime(context.Background())
//
// Create a stream and post work onto it:
//
//	handle, _ := streamrt.MakeStreamAsync().Wait(ctx)
//	done, _ := streamrt.PostTask(&handle, func(ctx context.Context) {
//		// Runs on the worker, in FIFO order with other tasks on this stream.
//	})
//	done.Wait(ctx)
//
// Record an event and synchronize everything:
//
//	ev := core.NewEvent()
//	streamrt.PushTask(ev, &handle)
//	streamrt.Synchronize(ctx)
//
// # Key Concepts
//
// Stream: an ordered execution context. Tasks enqueued on the same stream
// execute in enqueue order; tasks on different streams may execute
// concurrently during a drain generation.
//
// Null stream: the implicit stream used when no handle is supplied. Work
// recorded on it carries device-wide synchronization intent: a non-empty
// null stream primes a full drain of every stream.
//
// Event: a recorded completion point with a monotonic timestamp and an
// all-synchronizing flag set when recorded against the null stream.
//
// Worker: a single background goroutine drains the control stream each
// iteration, then either performs a full parallel drain (one helper
// goroutine per stream, all joined before the next iteration) or backs off
// with a randomized spin.
//
// # Shutdown
//
// Closing the runtime enqueues a poison control task. The worker performs
// one final full drain when it observes it, so work queued before shutdown
// always completes before the worker terminates.
package streamrt
