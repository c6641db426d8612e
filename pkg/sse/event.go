// Package sse provides a minimal line framer for the chat service's
// server-sent response stream. It splits the upstream byte stream on line
// boundaries, recognizes "data: " records, and can write every raw byte
// through to a second writer so a stream can be recorded and replayed later.
//
// This package intentionally does NOT decode record payloads or provide SSE
// writer or server capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DataPrefix marks a line that carries a record payload.
const DataPrefix = "data: "

// Line is a single non-blank line read from the upstream byte stream.
type Line struct {
	// Raw is the line as received, without its terminator.
	Raw string

	// Data is the record payload following DataPrefix. Empty when
	// IsData is false.
	Data string

	// IsData reports whether the line began with DataPrefix.
	IsData bool

	// Oversized reports that the line exceeded the maximum line size and
	// was dropped. Raw then holds only its first bytes.
	Oversized bool
}
