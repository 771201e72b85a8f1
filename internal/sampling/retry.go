package sampling

import "fmt"

// MaxResampleAttempts is the hard ceiling on consecutive retryable
// failures in the sampling orchestrator. It is deliberately not a
// tunable: callers needing a different ceiling must wrap the call.
const MaxResampleAttempts = 100

// Retry runs fn up to limit times, treating only errors for which
// retryable returns true as recoverable. The first non-retryable error
// is returned as-is. If all limit attempts fail with retryable errors,
// the last one is wrapped in ErrRetryLimitExceeded.
func Retry(limit int, retryable func(error) bool, fn func() error) error {
	var last error
	for attempt := 0; attempt < limit; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		last = err
	}
	return &Error{
		Message: fmt.Sprintf("all %d attempts failed, last: %v", limit, last),
		Err:     ErrRetryLimitExceeded,
		Op:      "Retry",
	}
}
