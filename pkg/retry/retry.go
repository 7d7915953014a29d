package retry

import (
	"context"
	"errors"
	"time"

	backoff "github.com/codeGROOVE-dev/retry"

	errs "profilescout/pkg/errors"
	"profilescout/pkg/logger"
)

// Config holds the retry policy of one kind of write
type Config struct {
	// Attempts counts the first try. One means no retry.
	Attempts  uint
	Delay     time.Duration
	MaxJitter time.Duration
	Logger    logger.Logger
}

// DefaultConfig returns the policy used for sink writes
func DefaultConfig() Config {
	return Config{
		Attempts:  3,
		Delay:     200 * time.Millisecond,
		MaxJitter: 100 * time.Millisecond,
	}
}

// WithAttempts returns a copy of c with n attempts. Values below one keep the default.
func (c Config) WithAttempts(n int) Config {
	if n > 0 {
		c.Attempts = uint(n)
	}
	return c
}

// ShouldRetry is the retry predicate. Typed errors are retried only when their
// type allows it, context errors never, anything else always.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}
	return true
}

// Do runs op until it succeeds, fails with a non-retryable error, runs out of
// attempts or ctx is done. The name only labels log lines.
func Do(ctx context.Context, cfg Config, name string, op func(ctx context.Context) error) error {
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	opts := []backoff.Option{
		backoff.Context(ctx),
		backoff.Attempts(cfg.Attempts),
		backoff.Delay(cfg.Delay),
		backoff.RetryIf(ShouldRetry),
		backoff.OnRetry(func(n uint, err error) {
			log.WarnWithFields("Retrying operation", map[string]interface{}{
				"operation":    name,
				"attempt":      n + 1,
				"max_attempts": cfg.Attempts,
				"error":        err.Error(),
			})
		}),
	}
	if cfg.MaxJitter > 0 {
		opts = append(opts, backoff.MaxJitter(cfg.MaxJitter))
	}

	return backoff.Do(func() error { return op(ctx) }, opts...)
}
