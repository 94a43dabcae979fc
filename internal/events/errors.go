package events

import "errors"

// NonRetriableError marks a handler failure that retrying cannot fix, such
// as a referenced record that no longer exists. The message is acked and
// dropped instead of redelivered.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return "non-retriable: " + e.Err.Error()
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

// NonRetriable wraps err so the consumer drops the message after this
// attempt.
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetriableError{Err: err}
}

// IsNonRetriable reports whether err (or anything it wraps) was marked
// non-retriable.
func IsNonRetriable(err error) bool {
	var nre *NonRetriableError
	return errors.As(err, &nre)
}
