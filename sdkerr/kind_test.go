package sdkerr

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewAndWrap(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(KindStorage, "could not persist token", base)
	if err.Kind != KindStorage {
		t.Fatalf("got kind %q", err.Kind)
	}
	if !errors.Is(err.Unwrap(), base) {
		t.Fatal("expected Unwrap to return the original cause")
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty Error() string")
	}
}

func TestWithRetryAfterAndMetadata(t *testing.T) {
	err := New(KindRateLimit, "rate limited").
		WithStatus(429).
		WithRetryAfter(2 * time.Second).
		WithMetadata(map[string]any{"endpoint": "/v1/widgets"})

	if err.Status != 429 {
		t.Fatalf("got status %d", err.Status)
	}
	if err.RetryAfter == nil || *err.RetryAfter != 2*time.Second {
		t.Fatalf("got retry after %v", err.RetryAfter)
	}
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := FromContext(ctx)
	if err == nil || err.Kind != KindCancelled {
		t.Fatalf("got %v", err)
	}

	deadlineCtx, deadlineCancel := context.WithTimeout(context.Background(), 0)
	defer deadlineCancel()
	time.Sleep(time.Millisecond)
	err = FromContext(deadlineCtx)
	if err == nil || err.Kind != KindTimeout {
		t.Fatalf("got %v", err)
	}

	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil for a live context")
	}
}

func TestAs(t *testing.T) {
	var target *Error
	wrapped := Wrap(KindNetwork, "dial failed", New(KindTimeout, "deadline exceeded"))
	if !As(wrapped, &target) {
		t.Fatal("expected As to match")
	}
	if target.Kind != KindNetwork {
		t.Fatalf("got %v", target.Kind)
	}
}
