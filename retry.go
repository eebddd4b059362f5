package props

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backoff returns the wait before retrying after the given 0-indexed failed
// attempt: base * 2^attempt. Pure function; the sleep itself goes through
// the injected clock so tests can simulate time.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	// Guard against shift overflow on absurd attempt counts
	if attempt > 32 {
		attempt = 32
	}
	return base << uint(attempt)
}

// Retryer executes a single remote operation with a bounded retry budget.
//
// Every attempt is preceded by a wait: the base delay before the first
// attempt (to stay under the node's rate limit), and the exponential backoff
// after each failure. For a budget of R attempts with base delay D the
// observed waits are D, D, 2D, 4D, ... Failures before the final attempt are
// logged as warnings; the final failure is wrapped and propagated.
type Retryer struct {
	attempts  int
	baseDelay time.Duration
	clock     Clock
	log       *slog.Logger
}

// NewRetryer creates a Retryer with the given attempt budget and base delay
func NewRetryer(attempts int, baseDelay time.Duration, clk Clock, log *slog.Logger) Retryer {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return Retryer{
		attempts:  attempts,
		baseDelay: baseDelay,
		clock:     clk,
		log:       log,
	}
}

// Do runs op until it succeeds or the attempt budget is exhausted.
// A propagated failure means this one lookup did not succeed; callers must
// not let it abort unrelated lookups in the same batch.
func (r Retryer) Do(ctx context.Context, name string, op func(context.Context) error) error {
	delay := r.baseDelay

	for attempt := 0; ; attempt++ {
		if err := r.wait(ctx, delay); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		if attempt >= r.attempts-1 {
			return fmt.Errorf("%w: %s failed after %d attempts: %w", ErrRetriesExhausted, name, r.attempts, err)
		}

		r.log.Warn("lookup failed, retrying",
			slog.String("op", name),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
		delay = Backoff(r.baseDelay, attempt)
	}
}

// wait blocks for d via the clock, honouring context cancellation
func (r Retryer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
