package stream

import (
	"errors"
	"fmt"
)

// ErrStreamFailed is matched by every transport failure: a network error, a
// read error mid-stream, or a non-success HTTP status. It is never delivered
// as an Event.
var ErrStreamFailed = errors.New("stream failed")

// FailedError describes a transport failure. Status is the HTTP status code
// when the failure was a non-success response, otherwise 0.
type FailedError struct {
	Status int
	Err    error
}

// Error implements error.
func (e *FailedError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("stream failed: status %d: %v", e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("stream failed: status %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("stream failed: %v", e.Err)
	default:
		return ErrStreamFailed.Error()
	}
}

// Unwrap returns the underlying cause.
func (e *FailedError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrStreamFailed so callers can match any transport
// failure with errors.Is.
func (e *FailedError) Is(target error) bool {
	return target == ErrStreamFailed
}

// Failed wraps err as a *FailedError. It returns nil for a nil err and
// returns err unchanged when it already matches ErrStreamFailed.
func Failed(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStreamFailed) {
		return err
	}
	return &FailedError{Err: err}
}
