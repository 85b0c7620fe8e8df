package core

import "context"

// =============================================================================
// Task and Reply Pattern across streams
// =============================================================================

// PostTaskAndReply runs task on the stream for taskStream, then enqueues
// reply on the stream for replyStream once the task has completed. Either
// handle may be nil to target the null stream.
//
// The reply is enqueued from within the task, so it lands in a later drain
// generation: the task always happens before the reply. If the task panics,
// the reply is not posted but the returned completion still resolves.
func (r *Runtime) PostTaskAndReply(
	taskStream *StreamHandle,
	task func(ctx context.Context),
	replyStream *StreamHandle,
	reply func(ctx context.Context),
) (*Completion, error) {
	return PostTaskAndReplyWithResult(r, taskStream,
		func(ctx context.Context) (struct{}, error) {
			task(ctx)
			return struct{}{}, nil
		},
		replyStream,
		func(ctx context.Context, _ struct{}, _ error) {
			reply(ctx)
		})
}

// PostTaskAndReplyWithResult runs a result-producing task on one stream and
// delivers the result to a reply callback on another. This is the shape a
// stream facade uses for "copy back to host, then invoke host callback".
//
// The returned completion resolves when the reply has executed.
//
// Happens-Before guarantee: the task finishes before the reply is enqueued,
// so the reply always observes the task's final writes.
func PostTaskAndReplyWithResult[T any](
	r *Runtime,
	taskStream *StreamHandle,
	task func(ctx context.Context) (T, error),
	replyStream *StreamHandle,
	reply func(ctx context.Context, value T, err error),
) (*Completion, error) {
	// Captured by both closures; the drain-generation ordering makes the
	// handoff safe without extra synchronization.
	var value T
	var err error

	done := newCompletion()
	wrappedReply := func(ctx context.Context) {
		defer done.resolve()
		reply(ctx, value, err)
	}

	_, postErr := r.PostTask(taskStream, func(ctx context.Context) {
		// If the reply never gets posted (task panic, stale reply stream),
		// the completion still resolves so callers cannot block forever.
		posted := false
		defer func() {
			if !posted {
				done.resolve()
			}
		}()

		value, err = task(ctx)
		if _, replyErr := r.PostTask(replyStream, wrappedReply); replyErr != nil {
			r.log.Warn("reply dropped", F("error", replyErr))
			return
		}
		posted = true
	})
	if postErr != nil {
		return nil, postErr
	}
	return done, nil
}
