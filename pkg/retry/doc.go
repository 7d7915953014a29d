// Package retry applies the retry policy used for external writes.
//
// Only writes to the optional Redis and Postgres stores go through here. Page
// fetches are never retried: a failed fetch skips its query.
//
//	err := retry.Do(ctx, retry.DefaultConfig().WithAttempts(5), "redis sadd", func(ctx context.Context) error {
//		return client.SAdd(ctx, key, url).Err()
//	})
//
// ShouldRetry decides which failures are worth another attempt. Errors typed
// with pkg/errors are retried only when errors.IsRetryable allows their type.
package retry
