package artwork

import (
	"context"
	"sync"
	"time"
)

// rateLimitSafetyMargin is added to computed waits so a request released at
// the window boundary does not land fractionally early.
const rateLimitSafetyMargin = 50 * time.Millisecond

// slidingWindowLimiter throttles outbound attempts to a provider. It records
// the timestamps of recent attempts and, when the window is full, blocks
// until the oldest timestamp slides out. Each provider has its own limiter
// with its own window/limit parameters.
type slidingWindowLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time

	now func() time.Time
}

func newSlidingWindowLimiter(maxRequests int, window time.Duration) *slidingWindowLimiter {
	return &slidingWindowLimiter{
		maxRequests: maxRequests,
		window:      window,
		stamps:      make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// Wait blocks until the next attempt is allowed, then records it. It returns
// early with the context error if ctx is cancelled while waiting.
func (l *slidingWindowLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.stamps[0].Add(l.window).Sub(now) + rateLimitSafetyMargin
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pending returns how many attempts are currently inside the window.
func (l *slidingWindowLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.stamps)
}

// prune drops timestamps that have slid out of the window.
// Caller must hold l.mu.
func (l *slidingWindowLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
