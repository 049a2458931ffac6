package trust

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RetryPolicy bounds how often an operation is reattempted before its
// failure is surfaced.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPurgeRetryPolicy governs per-record deletes during an account
// purge: a handful of quick retries, then give up on that record only.
var DefaultPurgeRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Delay:       500 * time.Millisecond,
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// Do runs op up to MaxAttempts times, sleeping Delay between attempts.
// It stops early when the context is cancelled, and returns the last
// error wrapped with the attempt count after exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	p = p.normalize()

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if last = op(ctx); last == nil {
			return nil
		}

		if attempt < p.MaxAttempts && p.Delay > 0 {
			select {
			case <-time.After(p.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return goerrors.Wrap(last, goerrors.CategoryOperation, "retries exhausted").
		WithTextCode("RETRIES_EXHAUSTED").
		WithMetadata(map[string]any{
			"attempts": p.MaxAttempts,
		})
}
