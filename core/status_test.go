package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// TestStatus_SetThenGet verifies the idempotent last-error property
// Given: a context with a status cell
// When: SetLastError(X) is followed by LastError()
// Then: LastError returns X and SetLastError returned the prior value
func TestStatus_SetThenGet(t *testing.T) {
	ctx := WithStatusCell(context.Background())

	if got := LastError(ctx); got != StatusSuccess {
		t.Fatalf("initial LastError = %v, want StatusSuccess", got)
	}

	if prev := SetLastError(ctx, StatusInvalidHandle); prev != StatusSuccess {
		t.Errorf("first SetLastError returned %v, want StatusSuccess", prev)
	}
	if got := LastError(ctx); got != StatusInvalidHandle {
		t.Errorf("LastError = %v, want StatusInvalidHandle", got)
	}

	if prev := SetLastError(ctx, StatusNotReady); prev != StatusInvalidHandle {
		t.Errorf("second SetLastError returned %v, want StatusInvalidHandle", prev)
	}
}

// TestStatus_CellsAreIsolatedPerContext verifies no cross-context visibility
// Given: two caller contexts with their own cells
// When: one context records an error
// Then: the other context still reads StatusSuccess
func TestStatus_CellsAreIsolatedPerContext(t *testing.T) {
	ctxA := WithStatusCell(context.Background())
	ctxB := WithStatusCell(context.Background())

	SetLastError(ctxA, StatusShutdown)

	if got := LastError(ctxB); got != StatusSuccess {
		t.Errorf("ctxB LastError = %v, want StatusSuccess", got)
	}
	if got := LastError(ctxA); got != StatusShutdown {
		t.Errorf("ctxA LastError = %v, want StatusShutdown", got)
	}
}

// TestStatus_DerivedContextSharesCell verifies the cell travels with ctx
func TestStatus_DerivedContextSharesCell(t *testing.T) {
	ctx := WithStatusCell(context.Background())
	derived := WithStatusCell(ctx) // must not replace the existing cell

	SetLastError(derived, StatusNotReady)

	if got := LastError(ctx); got != StatusNotReady {
		t.Errorf("parent LastError = %v, want StatusNotReady", got)
	}
	if StatusCellFrom(ctx) != StatusCellFrom(derived) {
		t.Error("WithStatusCell replaced an existing cell")
	}
}

// TestStatus_BareContextIsInert verifies behavior without a cell
func TestStatus_BareContextIsInert(t *testing.T) {
	ctx := context.Background()

	if got := LastError(ctx); got != StatusSuccess {
		t.Errorf("LastError = %v, want StatusSuccess", got)
	}
	if prev := SetLastError(ctx, StatusShutdown); prev != StatusSuccess {
		t.Errorf("SetLastError = %v, want StatusSuccess", prev)
	}
	// The write above went nowhere.
	if got := LastError(ctx); got != StatusSuccess {
		t.Errorf("LastError after discarded write = %v, want StatusSuccess", got)
	}
}

// TestStatus_ConcurrentExchange verifies atomic exchange semantics
// Given: many goroutines exchanging values on one cell
// When: all finish
// Then: every exchanged-out value is observed exactly once (no lost updates)
func TestStatus_ConcurrentExchange(t *testing.T) {
	ctx := WithStatusCell(context.Background())
	const n = 64

	seen := make(chan Status, n)
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(s Status) {
			defer wg.Done()
			seen <- SetLastError(ctx, s)
		}(Status(i))
	}
	wg.Wait()
	close(seen)

	counts := make(map[Status]int)
	for s := range seen {
		counts[s]++
	}
	counts[LastError(ctx)]++

	// StatusSuccess (the initial value) plus values 1..n each seen once.
	for s, c := range counts {
		if c != 1 {
			t.Errorf("status %v observed %d times, want 1", s, c)
		}
	}
	if len(counts) != n+1 {
		t.Errorf("observed %d distinct values, want %d", len(counts), n+1)
	}
}

// TestStatusFromError verifies the error-to-status mapping
func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusSuccess},
		{"stale stream", ErrStaleStream, StatusInvalidHandle},
		{"runtime closed", ErrRuntimeClosed, StatusShutdown},
		{"wrapped stale", fmt.Errorf("post: %w", ErrStaleStream), StatusInvalidHandle},
		{"cancelled wait", context.Canceled, StatusNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFromError(tt.err); got != tt.want {
				t.Errorf("StatusFromError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
