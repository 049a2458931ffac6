package trust

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const defaultConnectionRetries = 15

// WaitForStore pings the persistent store until it answers, retrying once
// per second up to the configured bound. A store that never answers is a
// fatal startup condition; callers should not serve traffic on error.
func WaitForStore(ctx context.Context, db *bun.DB, cfg Config, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	retries := defaultConnectionRetries
	if cfg != nil && cfg.GetConnectionRetries() > 0 {
		retries = cfg.GetConnectionRetries()
	}

	attempt := 0
	policy := RetryPolicy{MaxAttempts: retries, Delay: time.Second}
	err := policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		if perr := db.PingContext(ctx); perr != nil {
			logger.Warn("store unreachable (attempt %d/%d): %v", attempt, retries, perr)
			return perr
		}
		return nil
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "persistent store unreachable").
			WithTextCode("STORE_UNREACHABLE")
	}

	return nil
}
