package gateway

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy decides how many extra attempts a transient failure earns
// and how long to wait between them. Injectable so tests can fake a
// gateway that fails N times then succeeds without sleeping.
type RetryPolicy struct {
	MaxRetries int                             // extra attempts after the first
	Backoff    func(attempt int) time.Duration // attempt is 1-based
}

// DefaultRetryPolicy retries twice with linear backoff.
func DefaultRetryPolicy(baseDelay time.Duration) RetryPolicy {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    func(attempt int) time.Duration { return time.Duration(attempt) * baseDelay },
	}
}

// do runs fn up to 1+MaxRetries times, sleeping Backoff(attempt) between
// tries. Only transient gateway errors are retried.
func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var ge *Error
		if !errors.As(err, &ge) || !ge.Temporary() || attempt >= p.MaxRetries {
			return err
		}
		delay := time.Duration(0)
		if p.Backoff != nil {
			delay = p.Backoff(attempt + 1)
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
	}
}
