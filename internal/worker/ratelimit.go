package worker

import (
	"context"
	"sync"
	"time"
)

// slidingWindowLimiter bounds how many jobs start within any trailing
// window, independent of pool concurrency, to protect downstream provider
// quotas. A token-bucket limiter would allow bursts that exceed the
// per-minute quota; the sliding window tracks actual start timestamps.
type slidingWindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	starts []time.Time
}

// newSlidingWindowLimiter creates a limiter allowing limit starts per
// window. A limit of zero or less returns nil (unlimited).
func newSlidingWindowLimiter(limit int, window time.Duration) *slidingWindowLimiter {
	if limit <= 0 {
		return nil
	}
	return &slidingWindowLimiter{
		limit:  limit,
		window: window,
	}
}

// Wait blocks until a slot is available in the window or the context is
// cancelled. On success the start is recorded.
func (l *slidingWindowLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	for {
		l.mu.Lock()
		now := time.Now()
		l.evict(now)
		if len(l.starts) < l.limit {
			l.starts = append(l.starts, now)
			l.mu.Unlock()
			return nil
		}
		// Sleep until the oldest start ages out of the window.
		wakeAt := l.starts[0].Add(l.window)
		l.mu.Unlock()

		timer := time.NewTimer(time.Until(wakeAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// evict drops starts older than the window. Caller holds the lock.
func (l *slidingWindowLimiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.starts) && l.starts[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.starts = append(l.starts[:0], l.starts[i:]...)
	}
}
