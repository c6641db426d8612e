// Package stream turns the chat service's response byte stream into typed
// events. Records are framed by pkg/sse and decoded here; an Ingestor yields
// each event as soon as its line is complete.
package stream

// Kind classifies an Event.
type Kind int

const (
	// KindChunk carries a fragment of the reply to append to the buffer.
	KindChunk Kind = iota

	// KindComplete marks the end of a successful reply.
	KindComplete

	// KindError carries a server-reported error that replaces the reply.
	KindError
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindChunk:
		return typeChunk
	case KindComplete:
		return typeComplete
	case KindError:
		return typeError
	default:
		return "unknown"
	}
}

// Event is one decoded record. Content is empty for KindComplete.
type Event struct {
	Kind    Kind
	Content string
}

// Chunk returns a KindChunk event.
func Chunk(text string) Event {
	return Event{Kind: KindChunk, Content: text}
}

// Complete returns a KindComplete event.
func Complete() Event {
	return Event{Kind: KindComplete}
}

// Error returns a KindError event.
func Error(text string) Event {
	return Event{Kind: KindError, Content: text}
}
