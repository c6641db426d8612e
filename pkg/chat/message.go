package chat

import (
	"time"

	"github.com/papercomputeco/parley/pkg/format"
)

// Status is the connection status shown by the UI. It reflects the outcome
// of the most recent turn.
type Status int

const (
	StatusConnected Status = iota
	StatusDisconnected
)

func (s Status) String() string {
	if s == StatusDisconnected {
		return "disconnected"
	}
	return "connected"
}

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Raw is the text Markup was formatted
// from. Finalized is set once the message will not change again.
type Message struct {
	ID        string
	Role      Role
	Raw       string
	Markup    format.Markup
	Finalized *time.Time
}

// Update is delivered to the UI after every change to the active turn.
type Update struct {
	TurnID string
	Raw    string
	Markup format.Markup
	Status Status

	// Done is set on the last update of a turn.
	Done bool

	// Failed is set when the turn ended with a transport failure and Markup
	// holds the fallback text.
	Failed bool
}
