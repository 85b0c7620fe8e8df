package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestTask_InvokeResolvesCompletion verifies the completion handle resolves
// Given: a Task with an unstarted callable
// When: invoke is called
// Then: the completion handle resolves after the callable returns
func TestTask_InvokeResolvesCompletion(t *testing.T) {
	// Arrange
	ran := false
	task := NewTask(func(ctx context.Context) {
		ran = true
	})

	if task.Completion().Resolved() {
		t.Fatal("completion resolved before invoke")
	}

	// Act
	sig := task.invoke(context.Background())

	// Assert
	if !ran {
		t.Error("callable did not run")
	}
	if sig != SignalCompleted {
		t.Errorf("signal = %v, want SignalCompleted", sig)
	}
	if !task.Completion().Resolved() {
		t.Error("completion not resolved after invoke")
	}
}

// TestTask_InvokeAtMostOnce verifies the at-most-once invariant
// Given: a Task invoked concurrently from several goroutines
// When: all invocations return
// Then: the callable ran exactly once
func TestTask_InvokeAtMostOnce(t *testing.T) {
	// Arrange
	runs := 0
	task := NewTask(func(ctx context.Context) {
		runs++
	})

	// Act
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.invoke(context.Background())
		}()
	}
	wg.Wait()

	// Assert - runs is only written by the single winning invocation
	if runs != 1 {
		t.Errorf("callable ran %d times, want 1", runs)
	}
}

// TestTask_SignalTask verifies signal propagation
// Given: a signal task that requests shutdown
// When: invoked
// Then: SignalShutdown is reported and the completion still resolves
func TestTask_SignalTask(t *testing.T) {
	task := NewSignalTask(func(ctx context.Context) Signal {
		return SignalShutdown
	})

	if sig := task.invoke(context.Background()); sig != SignalShutdown {
		t.Errorf("signal = %v, want SignalShutdown", sig)
	}
	if !task.Completion().Resolved() {
		t.Error("completion not resolved for signal task")
	}
}

// TestTask_CompletionResolvesOnPanic verifies resolution is unconditional
// Given: a Task whose callable panics
// When: invoked (with the panic recovered by the caller)
// Then: the completion handle still resolves
func TestTask_CompletionResolvesOnPanic(t *testing.T) {
	task := NewTask(func(ctx context.Context) {
		panic("defective task")
	})

	func() {
		defer func() { recover() }()
		task.invoke(context.Background())
	}()

	if !task.Completion().Resolved() {
		t.Error("completion not resolved after panicking callable")
	}
}

// TestCompletion_WaitContextCancel verifies Wait honors context cancellation
// Given: a never-invoked Task
// When: Wait is called with a short deadline
// Then: Wait returns context.DeadlineExceeded
func TestCompletion_WaitContextCancel(t *testing.T) {
	task := NewTask(func(ctx context.Context) {})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := task.Completion().Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait error = %v, want DeadlineExceeded", err)
	}
}

// TestFuture_SetAndWait verifies value delivery
// Given: a Future resolved from another goroutine
// When: Wait is called
// Then: the set value is returned
func TestFuture_SetAndWait(t *testing.T) {
	fut := newFuture[int]()
	go fut.set(42)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := fut.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got != 42 {
		t.Errorf("value = %d, want 42", got)
	}
}

// TestFuture_SetOnce verifies the first resolution wins
func TestFuture_SetOnce(t *testing.T) {
	fut := newFuture[string]()
	fut.set("first")
	fut.set("second")

	got, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got != "first" {
		t.Errorf("value = %q, want %q", got, "first")
	}
}
