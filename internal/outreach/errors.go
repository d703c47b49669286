package outreach

import (
	"context"
	"errors"
	"net"
)

// TransientError marks a failure as retryable: connection resets, timeouts,
// provider 5xx responses. Anything not marked transient is treated as
// permanent and propagates without retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a retryable connectivity failure.
// Explicitly wrapped errors, net timeouts, and deadline expiry qualify;
// validation errors, rate limits, and open circuits do not.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
