package util

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOperation retries the operation with a constant backoff policy.
func RetryOperation(ctx context.Context, wait time.Duration, retries int, operation func() error) error {
	bo := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(wait),
		uint64(retries),
	)
	bo = backoff.WithContext(bo, ctx)
	return backoff.Retry(operation, bo)
}

// RetryOperationForErrors retries the operation only when it fails with one
// of the listed errors. Any other error aborts the retry loop immediately.
func RetryOperationForErrors(ctx context.Context, wait time.Duration, retries int, retryableErrors []error, operation func() error) error {
	return RetryOperation(ctx, wait, retries, func() error {
		err := operation()
		if err == nil {
			return nil
		}
		for _, retryable := range retryableErrors {
			if errors.Is(err, retryable) {
				return err
			}
		}
		return backoff.Permanent(err)
	})
}
