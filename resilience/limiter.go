package resilience

import (
	"container/list"
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/sdklog"
)

// LimiterMode controls what RateLimiter.Acquire does when the bucket is
// empty: fail fast with a rate_limit error, or block until a token frees up.
type LimiterMode string

const (
	LimiterFailFast LimiterMode = "fail_fast"
	LimiterQueued   LimiterMode = "queued"
)

// LimiterPolicy configures a token-bucket rate limiter.
type LimiterPolicy struct {
	Capacity     int
	RefillPerSec float64
	Mode         LimiterMode
	Now          func() time.Time
}

// DefaultLimiterPolicy allows 10 requests/sec with a 10-token burst, failing
// fast once exhausted.
func DefaultLimiterPolicy() LimiterPolicy {
	return LimiterPolicy{Capacity: 10, RefillPerSec: 10, Mode: LimiterFailFast}
}

// RateLimiter is a single-instance token bucket with linear refill. Headers
// from upstream responses can reconcile the bucket downward (never upward)
// via Reconcile, so a server that reports fewer remaining tokens than we
// believe we have wins.
type RateLimiter struct {
	policy LimiterPolicy

	// Logger receives a Debug line each time a queued Acquire is forced to
	// fall back on its own timer instead of being woken by Reconcile or the
	// sweeper. Nil is a safe no-op.
	Logger sdklog.Logger

	mu      sync.Mutex
	tokens  float64
	updated time.Time
	waiters *list.List // chan struct{} FIFO for queued mode
}

// NewRateLimiter constructs a RateLimiter; a zero-value policy falls back to
// DefaultLimiterPolicy.
func NewRateLimiter(policy LimiterPolicy) *RateLimiter {
	if policy.Capacity <= 0 {
		policy = DefaultLimiterPolicy()
	}
	return &RateLimiter{
		policy:  policy,
		tokens:  float64(policy.Capacity),
		updated: policy.nowOrDefault(),
		waiters: list.New(),
	}
}

func (p LimiterPolicy) nowOrDefault() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (l *RateLimiter) now() time.Time {
	return l.policy.nowOrDefault()
}

func (l *RateLimiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.updated).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.policy.RefillPerSec
	if cap := float64(l.policy.Capacity); l.tokens > cap {
		l.tokens = cap
	}
	l.updated = now
}

// Acquire takes one token, blocking (in queued mode) or failing immediately
// (in fail-fast mode) when the bucket is empty.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refillLocked()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}

		if l.policy.Mode != LimiterQueued {
			l.mu.Unlock()
			return sdkerr.New(sdkerr.KindRateLimit, "rate limit bucket exhausted")
		}

		wake := make(chan struct{})
		elem := l.waiters.PushBack(wake)
		wait := time.Duration((1 - l.tokens) / l.policy.RefillPerSec * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.mu.Lock()
			l.removeWaiterLocked(elem)
			l.mu.Unlock()
			return sdkerr.FromContext(ctx)
		case <-wake:
			timer.Stop()
		case <-timer.C:
			l.mu.Lock()
			l.removeWaiterLocked(elem)
			l.mu.Unlock()
			if l.Logger != nil {
				l.Logger.Debug("rate limiter waiter woke on fallback timer, not sweeper or reconcile")
			}
		}
	}
}

// StartQueueSweeper registers a periodic sweep of queued waiters on c,
// waking any whose tokens have refilled since their own fallback timer was
// set. It complements, rather than replaces, each waiter's timer: a queued
// caller is never left waiting longer than its own computed deadline, but a
// burst of Reconcile-driven headroom can free it earlier. Returns the
// cron.EntryID so the caller can later c.Remove it.
func (l *RateLimiter) StartQueueSweeper(c *cron.Cron, interval time.Duration) cron.EntryID {
	return c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		l.mu.Lock()
		l.refillLocked()
		for l.tokens >= 1 && l.waiters.Len() > 0 {
			l.wakeOneLocked()
		}
		l.mu.Unlock()
	}))
}

func (l *RateLimiter) removeWaiterLocked(elem *list.Element) {
	if elem == nil || elem.Value == nil {
		return
	}
	l.waiters.Remove(elem)
}

// wakeOneLocked wakes the oldest queued waiter, if any, FIFO.
func (l *RateLimiter) wakeOneLocked() {
	front := l.waiters.Front()
	if front == nil {
		return
	}
	l.waiters.Remove(front)
	ch, _ := front.Value.(chan struct{})
	if ch != nil {
		close(ch)
	}
}

// Reconcile folds upstream rate-limit headers into the bucket. Remaining
// counts only ever move the bucket down, never up - a server claiming more
// headroom than we tracked locally is not trusted to refill us early.
func (l *RateLimiter) Reconcile(headers http.Header) {
	remaining, ok := parseHeaderInt(headers, "X-RateLimit-Remaining")
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	if float64(remaining) < l.tokens {
		l.tokens = float64(remaining)
	}
	if l.tokens >= 1 {
		l.wakeOneLocked()
	}
}

func parseHeaderInt(headers http.Header, key string) (int, bool) {
	if headers == nil {
		return 0, false
	}
	raw := strings.TrimSpace(headers.Get(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
