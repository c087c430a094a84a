package figma

import (
	"context"
	"sync"
	"time"
)

// rpsLimiter spaces API calls so at most rps start per second, letting up to
// burst calls through back to back after an idle period. The Figma API
// answers 429 per token, so one limiter is shared by every call a client
// makes.
type rpsLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	window   time.Duration
	next     time.Time
	closed   chan struct{}
	once     sync.Once
}

// newRPSLimiter returns nil (no throttling) when rps <= 0.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	burst = max(burst, 1)
	interval := max(time.Duration(float64(time.Second)/rps), time.Microsecond)
	return &rpsLimiter{
		interval: interval,
		window:   interval * time.Duration(burst-1),
		closed:   make(chan struct{}),
	}
}

// reserve books the next start slot and returns how long to wait for it.
func (l *rpsLimiter) reserve(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if earliest := now.Add(-l.window); l.next.Before(earliest) {
		l.next = earliest
	}
	wait := l.next.Sub(now)
	l.next = l.next.Add(l.interval)
	return max(wait, 0)
}

// Acquire blocks until the caller may send, ctx is done or the limiter is
// stopped.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-l.closed:
		return context.Canceled
	default:
	}
	wait := l.reserve(time.Now())
	if wait == 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		return context.Canceled
	case <-t.C:
		return nil
	}
}

func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	l.once.Do(func() { close(l.closed) })
}
