package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestWithBackoff_Success(t *testing.T) {
	result, err := WithBackoff(context.Background(), 3, time.Millisecond, isTransient, func() (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected 'ok', got %q", result)
	}
}

func TestWithBackoff_NonRetriableError(t *testing.T) {
	calls := 0
	_, err := WithBackoff(context.Background(), 3, time.Millisecond, isTransient, func() (string, error) {
		calls++
		return "", errPermanent
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call for non-retriable error, got %d", calls)
	}
}

func TestWithBackoff_RetriableEventualSuccess(t *testing.T) {
	calls := 0
	result, err := WithBackoff(context.Background(), 5, time.Millisecond, isTransient, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result != 42 || calls != 3 {
		t.Fatalf("expected 42 after 3 calls, got %d after %d", result, calls)
	}
}

func TestWithBackoff_AllRetriesFail(t *testing.T) {
	calls := 0
	_, err := WithBackoff(context.Background(), 3, time.Millisecond, isTransient, func() (int, error) {
		calls++
		return 0, errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithBackoff(ctx, 3, time.Millisecond, isTransient, func() (int, error) {
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithBackoff_InvalidMaxRetries(t *testing.T) {
	_, err := WithBackoff(context.Background(), 0, time.Millisecond, isTransient, func() (int, error) {
		return 1, nil
	})
	if err == nil {
		t.Fatal("expected error for maxRetries=0")
	}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute, isTransient)
	cb.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return errTransient }); !errors.Is(err, errTransient) {
			t.Fatalf("expected transient error, got %v", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %v", cb.State())
	}

	called := false
	if err := cb.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Fatal("fn must not run while open")
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute, isTransient)
	_ = cb.Execute(func() error { return errPermanent })
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %v", cb.State())
	}
}
