package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-sdkcore/sdkerr"
)

func TestOrchestrator_ComposesLimiterBreakerRetry(t *testing.T) {
	limiter := NewRateLimiter(LimiterPolicy{Capacity: 5, RefillPerSec: 100, Mode: LimiterFailFast})
	breaker := NewBreaker(BreakerPolicy{FailureThreshold: 5, Window: time.Minute, OpenTimeout: time.Minute})
	executor := NewExecutor(RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	o := NewOrchestrator(limiter, breaker, executor)

	attempts := 0
	result, err := Do(context.Background(), o, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", sdkerr.New(sdkerr.KindNetwork, "flaky")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("got %q", result)
	}
}

func TestOrchestrator_LimiterExhaustionSkipsBreakerAndRetry(t *testing.T) {
	limiter := NewRateLimiter(LimiterPolicy{Capacity: 1, RefillPerSec: 0, Mode: LimiterFailFast})
	_ = limiter.Acquire(context.Background())
	o := NewOrchestrator(limiter, nil, nil)

	called := false
	_, err := Do(context.Background(), o, func(ctx context.Context) (string, error) {
		called = true
		return "", nil
	})
	if called {
		t.Fatal("fn should not run once the limiter rejects the call")
	}
	var sdkErr *sdkerr.Error
	if !sdkerr.As(err, &sdkErr) || sdkErr.Kind != sdkerr.KindRateLimit {
		t.Fatalf("expected rate_limit error, got %v", err)
	}
}
