package httputil

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// RetryableError marks an error as transient so that [Retry] tries again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times, doubling delay after each failure.
// Only errors wrapped in [RetryableError] are retried; the wrapper is removed
// from the error Retry returns. Cancelling ctx stops the wait between
// attempts and returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = re.Err

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryableStatus reports whether a response status is worth retrying:
// 429 and every 5xx except 501.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		(code >= 500 && code != http.StatusNotImplemented)
}
