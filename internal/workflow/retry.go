package workflow

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// newBackoff builds the exponential-with-jitter policy of §4.8 step 3: base
// 1s, multiplier 2, jitter +/-20%, capped at MaxActionRetries retries (3
// total attempts).
func newBackoff() (retry.Backoff, error) {
	b := retry.NewExponential(1 * time.Second)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithMaxRetries(MaxActionRetries, b)
	return b, nil
}

func retryDo(ctx context.Context, b retry.Backoff, fn retry.RetryFunc) error {
	return retry.Do(ctx, b, fn)
}

func retryableError(err error) error {
	return retry.RetryableError(err)
}
