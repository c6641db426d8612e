package chat

import "errors"

var (
	// ErrEmptyMessage is returned by Send for a message that is empty after
	// trimming whitespace.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTurnInProgress is returned when a send or clear is attempted while a
	// turn is streaming. Requests are rejected, never queued.
	ErrTurnInProgress = errors.New("a turn is already in progress")
)
