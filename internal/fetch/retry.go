package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

const maxRetries = 3

// FetchWithRetry retries transient failures up to three times with capped
// exponential backoff. Non-retryable errors fail immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0

	operation := func() (*Result, error) {
		res, err := f.Fetch(ctx, rawURL, opts)
		if err != nil {
			if !werrors.IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return res, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxRetries+1),
	)
}
