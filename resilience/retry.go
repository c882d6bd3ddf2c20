// Package resilience composes the retry, circuit-breaker, and rate-limit
// primitives every SDK client runs its outbound calls through.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/sdklog"
)

// RetryPolicy configures the exponential-backoff-with-jitter retry executor.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64 // fraction of the computed delay randomized, e.g. 0.2 = +/-20%
	Now            func() time.Time
	Sleep          func(context.Context, time.Duration) error
}

// DefaultRetryPolicy mirrors the teacher's adaptive-backoff defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

func (p RetryPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff returns the delay before attempt n (1-indexed: the wait before the
// 2nd attempt is backoff(1)), honoring a server-supplied retry hint when
// present and applying symmetric jitter otherwise.
func (p RetryPolicy) backoff(attempt int, hint *time.Duration) time.Duration {
	if hint != nil && *hint > 0 {
		return *hint
	}
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.MaxBackoff
	if maximum <= 0 {
		maximum = time.Minute
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(initial)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		if delay >= float64(maximum) {
			delay = float64(maximum)
			break
		}
	}
	d := time.Duration(delay)
	if d > maximum {
		d = maximum
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread + rand.Float64()*2*spread)
		if d < 0 {
			d = 0
		}
	}
	return d
}

// Executor runs an operation under a RetryPolicy, retrying classified
// sdkerr.Error failures whose Retryable flag is set.
type Executor struct {
	Policy RetryPolicy

	// Logger receives a Debug line per retried attempt and a Warn once
	// MaxAttempts is exhausted. Nil is a safe no-op.
	Logger sdklog.Logger
}

// NewExecutor builds an Executor; a zero Policy falls back to DefaultRetryPolicy.
func NewExecutor(policy RetryPolicy) *Executor {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Executor{Policy: policy}
}

// Execute runs fn, retrying on retryable failures until MaxAttempts is
// exhausted or ctx is done. The result type is generic so callers never have
// to unpack an any.
func Execute[T any](ctx context.Context, ex *Executor, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if ex == nil {
		ex = NewExecutor(DefaultRetryPolicy())
	}
	policy := ex.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	// idempotencyKey identifies this logical operation across every retried
	// attempt, so a downstream idempotency-aware endpoint (or a log line
	// correlating attempts) can tell a retry from a brand-new call.
	idempotencyKey := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, sdkerr.FromContext(ctx)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var sdkErr *sdkerr.Error
		if !sdkerr.As(err, &sdkErr) || !sdkErr.Retryable {
			return zero, err
		}
		if attempt == policy.MaxAttempts {
			if ex.Logger != nil {
				ex.Logger.Warn("retry attempts exhausted", "idempotency_key", idempotencyKey, "attempts", attempt)
			}
			break
		}

		delay := policy.backoff(attempt, sdkErr.RetryAfter)
		if ex.Logger != nil {
			ex.Logger.Debug("retrying after failure", "idempotency_key", idempotencyKey, "attempt", attempt, "delay", delay)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}
