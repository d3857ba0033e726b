package research

import (
	"context"
	"time"
)

// Limiter paces outbound calls. The engine injects one limiter for LLM
// calls and one for the pause between subtasks so pacing strategy can
// change without touching stage logic.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FixedDelayLimiter sleeps a constant duration per call. It honors
// context cancellation during the sleep.
type FixedDelayLimiter struct {
	delay time.Duration
}

func NewFixedDelayLimiter(delay time.Duration) FixedDelayLimiter {
	return FixedDelayLimiter{delay: delay}
}

func (l FixedDelayLimiter) Wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(l.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopLimiter never waits. Used in tests and for callers that pace
// externally.
type NopLimiter struct{}

func (NopLimiter) Wait(ctx context.Context) error { return ctx.Err() }

func waitFor(ctx context.Context, limiter Limiter) error {
	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}
