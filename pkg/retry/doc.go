// Package retry provides exponential backoff retry logic for transient failures.
//
// Do runs a function until it succeeds, the attempt budget is spent, the error is
// marked NonRetryable, Config.Retryable rejects it, or the context fires. Delays
// grow by Multiplier up to MaxDelay, with optional jitter.
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
//
// DoWithResult is the value-returning variant used by the provider retry
// interceptor.
package retry
