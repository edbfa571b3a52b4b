package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff describes how Retry spaces its attempts. Zero fields take the
// defaults: 3 attempts, 100ms first delay doubling up to 10s.
type Backoff struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
	// Permanent reports errors that retrying cannot fix.
	Permanent func(error) bool
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Delay <= 0 {
		b.Delay = 100 * time.Millisecond
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = 10 * time.Second
	}
	return b
}

// wait returns the pause after the given failed attempt: the doubled base
// delay with up to 10% jitter either way, capped at MaxDelay.
func (b Backoff) wait(attempt int) time.Duration {
	d := b.Delay
	for i := 1; i < attempt && d < b.MaxDelay; i++ {
		d *= 2
	}
	d = min(d, b.MaxDelay)
	jitter := time.Duration((rand.Float64()*0.2 - 0.1) * float64(d))
	return min(d+jitter, b.MaxDelay)
}

// Retry calls fn until it succeeds, the attempts run out, fn returns a
// permanent error or ctx is done. Only startup connection code uses it;
// request paths surface backend failures directly.
func Retry(ctx context.Context, name string, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	log := slog.Default().With("component", "retry", "operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if errors.Is(err, context.Canceled) || (b.Permanent != nil && b.Permanent(err)) {
			return fmt.Errorf("%s: %w", name, err)
		}
		if attempt == b.Attempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt, err)
		}

		delay := b.wait(attempt)
		log.Warn("attempt failed", "attempt", attempt, "max_attempts", b.Attempts, "next_delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", name, ctx.Err(), err)
		}
	}
}
