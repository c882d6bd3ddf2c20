package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/sdklog"
)

// BreakerState is one of the three states in the circuit breaker's
// Closed/Open/HalfOpen machine.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerPolicy configures trip thresholds and recovery timing.
type BreakerPolicy struct {
	FailureThreshold int           // trips to Open once failures in the rolling window reach this count
	Window           time.Duration // rolling window over which failures are counted
	OpenTimeout      time.Duration // how long the breaker stays Open before probing
	Now              func() time.Time
}

// DefaultBreakerPolicy mirrors common production defaults: 5 failures in 30s
// trips the breaker, which reopens a single half-open probe after 30s.
func DefaultBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{
		FailureThreshold: 5,
		Window:           30 * time.Second,
		OpenTimeout:      30 * time.Second,
	}
}

// Breaker is a single-instance circuit breaker. Never share one Breaker
// across unrelated upstream targets; construct one per client/host pair.
type Breaker struct {
	policy BreakerPolicy

	// Logger receives Debug-level state transitions and a Warn when the
	// breaker trips. Nil is a safe no-op, matching the teacher's own
	// optional-logger field convention.
	Logger sdklog.Logger

	mu            sync.Mutex
	state         BreakerState
	failures      []time.Time
	openedAt      time.Time
	halfOpenInUse bool
}

// NewBreaker constructs a Breaker; a zero-value policy falls back to DefaultBreakerPolicy.
func NewBreaker(policy BreakerPolicy) *Breaker {
	if policy.FailureThreshold <= 0 {
		policy = DefaultBreakerPolicy()
	}
	return &Breaker{policy: policy, state: BreakerClosed}
}

func (b *Breaker) now() time.Time {
	if b.policy.Now != nil {
		return b.policy.Now()
	}
	return time.Now().UTC()
}

// State reports the breaker's current state without mutating it, except for
// the Open-to-HalfOpen transition once the open timeout has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked()
	return b.state
}

func (b *Breaker) transitionLocked() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.policy.OpenTimeout {
		b.state = BreakerHalfOpen
		b.halfOpenInUse = false
		b.logDebug("circuit breaker half-open, probing upstream")
	}
}

func (b *Breaker) logDebug(msg string, args ...any) {
	if b.Logger != nil {
		b.Logger.Debug(msg, args...)
	}
}

func (b *Breaker) logWarn(msg string, args ...any) {
	if b.Logger != nil {
		b.Logger.Warn(msg, args...)
	}
}

// Allow reports whether a new call may proceed, reserving the single
// half-open probe slot if the breaker is in that state. Call Success or
// Failure afterward to report the outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.halfOpenInUse {
			return false
		}
		b.halfOpenInUse = true
		return true
	default: // BreakerOpen
		return false
	}
}

// Success records a successful call, closing the breaker and resetting its
// failure window.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasOpen := b.state != BreakerClosed
	b.state = BreakerClosed
	b.failures = nil
	b.halfOpenInUse = false
	if wasOpen {
		b.logDebug("circuit breaker closed after successful probe")
	}
}

// Failure records a failed call. A failure while half-open reopens the
// breaker immediately; a failure while closed trips it once the rolling
// window reaches the failure threshold.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.state == BreakerHalfOpen {
		b.trip(now)
		return
	}

	b.failures = append(b.failures, now)
	cutoff := now.Add(-b.policy.Window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept

	if len(b.failures) >= b.policy.FailureThreshold {
		b.trip(now)
	}
}

func (b *Breaker) trip(now time.Time) {
	b.state = BreakerOpen
	b.openedAt = now
	b.failures = nil
	b.halfOpenInUse = false
	b.logWarn("circuit breaker tripped open", "open_timeout", b.policy.OpenTimeout)
}

// Run executes fn if the breaker allows it, recording the outcome, and
// returns a circuit_open error without calling fn when it does not.
func Run[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn(ctx)
	}
	if !b.Allow() {
		return zero, sdkerr.New(sdkerr.KindCircuitOpen, "circuit breaker is open")
	}
	result, err := fn(ctx)
	if err != nil {
		b.Failure()
		return zero, err
	}
	b.Success()
	return result, nil
}
