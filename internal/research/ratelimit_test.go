package research

import (
	"context"
	"testing"
	"time"
)

func TestFixedDelayLimiterZeroDelayDoesNotBlock(t *testing.T) {
	limiter := NewFixedDelayLimiter(0)
	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("zero-delay limiter must return immediately")
	}
}

func TestFixedDelayLimiterHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := NewFixedDelayLimiter(time.Minute)
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestWaitForNilLimiter(t *testing.T) {
	if err := waitFor(context.Background(), nil); err != nil {
		t.Fatalf("nil limiter must be a no-op, got %v", err)
	}
}
