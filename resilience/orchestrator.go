package resilience

import (
	"context"
	"net/http"
)

// Orchestrator composes a RateLimiter, Breaker, and retry Executor into the
// single call path every outbound request runs through: acquire a token,
// then run the breaker-guarded, retried operation.
type Orchestrator struct {
	Limiter *RateLimiter
	Breaker *Breaker
	Executor *Executor
}

// NewOrchestrator wires the three components together. Any of them may be
// nil to opt that stage out (e.g. no breaker for an idempotent read path).
func NewOrchestrator(limiter *RateLimiter, breaker *Breaker, executor *Executor) *Orchestrator {
	return &Orchestrator{Limiter: limiter, Breaker: breaker, Executor: executor}
}

// Do runs fn through rate-limit -> circuit-breaker -> retry, in that order:
// a call that never acquires a token never counts against the breaker. A
// tripped breaker fails the call with a circuit_open error, which is not
// retryable, so the retry stage returns it without further attempts.
func Do[T any](ctx context.Context, o *Orchestrator, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if o == nil {
		return fn(ctx)
	}
	if o.Limiter != nil {
		if err := o.Limiter.Acquire(ctx); err != nil {
			return zero, err
		}
	}

	guarded := fn
	if o.Breaker != nil {
		guarded = func(ctx context.Context) (T, error) {
			return Run(ctx, o.Breaker, fn)
		}
	}

	if o.Executor != nil {
		return Execute(ctx, o.Executor, guarded)
	}
	return guarded(ctx)
}

// ReconcileHeaders folds response headers back into the rate limiter after a
// call completes, so a server's own bookkeeping can only tighten our bucket.
func (o *Orchestrator) ReconcileHeaders(headers http.Header) {
	if o == nil || o.Limiter == nil {
		return
	}
	o.Limiter.Reconcile(headers)
}
