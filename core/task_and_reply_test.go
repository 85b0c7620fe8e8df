package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestPostTaskAndReply_RunsTaskThenReply verifies the ordering contract
// Given: a task on one stream and a reply on another
// When: the returned completion resolves
// Then: the task ran before the reply, and both ran on their streams
func TestPostTaskAndReply_RunsTaskThenReply(t *testing.T) {
	// Arrange
	r := newTestRuntime(t)
	ctx := testContext(t)

	taskStream, err := r.MakeStreamAsync().Wait(ctx)
	if err != nil {
		t.Fatalf("MakeStreamAsync failed: %v", err)
	}
	replyStream, err := r.MakeStreamAsync().Wait(ctx)
	if err != nil {
		t.Fatalf("MakeStreamAsync failed: %v", err)
	}

	// Act
	var steps []string
	done, err := r.PostTaskAndReply(&taskStream,
		func(taskCtx context.Context) {
			steps = append(steps, "task")
		},
		&replyStream,
		func(taskCtx context.Context) {
			steps = append(steps, "reply")
		})
	if err != nil {
		t.Fatalf("PostTaskAndReply failed: %v", err)
	}
	if err := done.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	// Assert - completion resolves after the reply, so steps is settled
	if len(steps) != 2 || steps[0] != "task" || steps[1] != "reply" {
		t.Errorf("steps = %v, want [task reply]", steps)
	}
}

// TestPostTaskAndReplyWithResult_DeliversValue verifies result handoff
func TestPostTaskAndReplyWithResult_DeliversValue(t *testing.T) {
	r := newTestRuntime(t)
	ctx := testContext(t)

	var gotValue int
	var gotErr error
	done, err := PostTaskAndReplyWithResult(r, nil,
		func(taskCtx context.Context) (int, error) {
			return 42, nil
		},
		nil,
		func(taskCtx context.Context, value int, err error) {
			gotValue, gotErr = value, err
		})
	if err != nil {
		t.Fatalf("PostTaskAndReplyWithResult failed: %v", err)
	}
	if err := done.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if gotValue != 42 {
		t.Errorf("value = %d, want 42", gotValue)
	}
	if gotErr != nil {
		t.Errorf("err = %v, want nil", gotErr)
	}
}

// TestPostTaskAndReplyWithResult_DeliversTaskError verifies error handoff
func TestPostTaskAndReplyWithResult_DeliversTaskError(t *testing.T) {
	r := newTestRuntime(t)
	ctx := testContext(t)

	taskErr := errors.New("device copy failed")
	var gotErr error
	done, err := PostTaskAndReplyWithResult(r, nil,
		func(taskCtx context.Context) (string, error) {
			return "", taskErr
		},
		nil,
		func(taskCtx context.Context, value string, err error) {
			gotErr = err
		})
	if err != nil {
		t.Fatalf("PostTaskAndReplyWithResult failed: %v", err)
	}
	if err := done.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if !errors.Is(gotErr, taskErr) {
		t.Errorf("reply observed err = %v, want %v", gotErr, taskErr)
	}
}

// TestPostTaskAndReply_PanickingTaskStillResolves verifies that a panic in
// the task skips the reply but resolves the completion, so callers waiting
// on it do not block forever
func TestPostTaskAndReply_PanickingTaskStillResolves(t *testing.T) {
	// Arrange
	r := NewRuntime(Options{
		Logger:       NewNoOpLogger(),
		PanicHandler: &silentPanicHandler{},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Close(ctx)
	})
	ctx := testContext(t)

	// Act
	done, err := r.PostTaskAndReply(nil,
		func(taskCtx context.Context) {
			panic("defective task")
		},
		nil,
		func(taskCtx context.Context) {
			t.Error("reply ran after the task panicked")
		})
	if err != nil {
		t.Fatalf("PostTaskAndReply failed: %v", err)
	}

	// Assert
	if err := done.Wait(ctx); err != nil {
		t.Fatalf("completion did not resolve after task panic: %v", err)
	}
}

// TestPostTaskAndReply_StaleTaskStreamRejected verifies posting errors
func TestPostTaskAndReply_StaleTaskStreamRejected(t *testing.T) {
	r := newTestRuntime(t)
	ctx := testContext(t)

	h, err := r.MakeStreamAsync().Wait(ctx)
	if err != nil {
		t.Fatalf("MakeStreamAsync failed: %v", err)
	}
	if err := r.DestroyStreamAsync(h).Wait(ctx); err != nil {
		t.Fatalf("DestroyStreamAsync failed: %v", err)
	}

	_, err = r.PostTaskAndReply(&h,
		func(taskCtx context.Context) {},
		nil,
		func(taskCtx context.Context) {})
	if !errors.Is(err, ErrStaleStream) {
		t.Errorf("error = %v, want ErrStaleStream", err)
	}
}

// TestPostTaskAndReplyWithResult_StaleReplyStreamResolves verifies that a
// reply stream destroyed mid-flight still resolves the completion instead
// of hanging the caller
func TestPostTaskAndReplyWithResult_StaleReplyStreamResolves(t *testing.T) {
	// Arrange
	r := newTestRuntime(t)
	ctx := testContext(t)

	replyStream, err := r.MakeStreamAsync().Wait(ctx)
	if err != nil {
		t.Fatalf("MakeStreamAsync failed: %v", err)
	}

	// Act - the task destroys the reply stream from outside before the
	// reply can be posted
	destroyed := make(chan struct{})
	done, err := PostTaskAndReplyWithResult(r, nil,
		func(taskCtx context.Context) (struct{}, error) {
			<-destroyed
			return struct{}{}, nil
		},
		&replyStream,
		func(taskCtx context.Context, _ struct{}, _ error) {
			t.Error("reply ran on a destroyed stream")
		})
	if err != nil {
		t.Fatalf("PostTaskAndReplyWithResult failed: %v", err)
	}
	r.streams.remove(replyStream)
	close(destroyed)

	// Assert
	if err := done.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}
