package indexer

import (
	"context"
	"time"
)

const maxRetryDelay = 30 * time.Second

// retryPolicy retries an RPC call with doubling backoff capped at maxRetryDelay.
type retryPolicy struct {
	retries int
	backoff time.Duration
}

func newRetryPolicy(retries int, backoff time.Duration) retryPolicy {
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return retryPolicy{retries: retries, backoff: backoff}
}

// do runs fn until it succeeds, the retries are spent, or ctx is done.
func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error) error {
	delay := p.backoff
	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, maxRetryDelay)
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
