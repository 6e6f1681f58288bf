// Package retry wraps outbound calls that the gateway is willing to
// retry a bounded number of times on transient failure: coordinator
// proxy calls and upstream replay fetches. It is deliberately not used
// inside proxyclient or the object store clients themselves, so callers
// opt in to retrying only where a transient failure is actually
// expected.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Attempts is the fixed number of tries (including the first) the
// gateway allows for a retryable upstream call.
const Attempts = 3

// Interval is the fixed delay between attempts.
const Interval = 10 * time.Millisecond

// Do runs fn up to Attempts times with a fixed 10ms delay between
// attempts, returning the first success or the last error.
func Do[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		return fn(ctx)
	}, backoff.WithBackOff(backoff.NewConstantBackOff(Interval)), backoff.WithMaxTries(Attempts))
}
