package stream

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Record type names as sent by the chat service.
const (
	typeChunk    = "chunk"
	typeComplete = "complete"
	typeError    = "error"
)

var (
	errInvalidJSON    = errors.New("invalid JSON payload")
	errNotObject      = errors.New("payload is not an object")
	errMissingType    = errors.New("payload has no string type")
	errContentNotText = errors.New("payload content is not a string")
)

// Decode parses a record payload of the form {"type": ..., "content": ...}
// into an Event. A missing content decodes as the empty string.
func Decode(payload string) (Event, error) {
	if !gjson.Valid(payload) {
		return Event{}, errInvalidJSON
	}

	root := gjson.Parse(payload)
	if !root.IsObject() {
		return Event{}, errNotObject
	}

	typ := root.Get("type")
	if typ.Type != gjson.String {
		return Event{}, errMissingType
	}

	content := root.Get("content")
	var text string
	switch content.Type {
	case gjson.String:
		text = content.Str
	case gjson.Null:
		// absent or explicit null
	default:
		return Event{}, errContentNotText
	}

	switch typ.Str {
	case typeChunk:
		return Chunk(text), nil
	case typeComplete:
		return Complete(), nil
	case typeError:
		return Error(text), nil
	default:
		return Event{}, fmt.Errorf("unknown record type %q", typ.Str)
	}
}
