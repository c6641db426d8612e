package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

const (
	initialBufferSize = 64 * 1024
	maxLineSize       = 1024 * 1024

	// oversizedHeadSize is how much of a dropped line is kept in Line.Raw.
	oversizedHeadSize = 256
)

// Reader reads lines from a source io.Reader while optionally writing all
// raw bytes verbatim to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌────────────────────────────┐
// │  Reader.Next()   │──▶│ destination io.Writer (opt)│
// └──────────────────┘   └────────────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │       Line       │
// └──────────────────┘
//
// Chunk boundaries in the source never split a Line: partial lines are
// buffered until their terminator (or end of stream) arrives.
type Reader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	// discarding is set while the rest of an oversized line is dropped.
	discarding bool
	dropped    bool
	head       string
}

// NewReader returns a Reader that frames lines from src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, nil)
}

// NewTeeReader returns a Reader that frames lines from src and writes each
// raw line, newline terminated, through to dest. A nil dest disables the tee.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	r := &Reader{dest: dest}

	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, initialBufferSize), maxLineSize)
	r.scanner.Split(r.split)

	return r
}

// Next returns the next non-blank line from the source. It blocks until a
// complete line is available. A final line without a terminator is returned
// once the source is exhausted. Next returns nil, nil at end of stream.
//
// A trailing "\r" is stripped so CRLF framed streams produce the same lines
// as LF framed ones. A line longer than 1MB is dropped up to its
// terminator and returned as a Line with Oversized set, holding only the
// start of the line in Raw.
func (r *Reader) Next() (*Line, error) {
	for r.scanner.Scan() {
		if r.dropped {
			r.dropped = false
			return &Line{Raw: r.head, Oversized: true}, nil
		}

		raw := r.scanner.Text()

		if r.dest != nil {
			// bufio.Scanner strips the newline from the Scan() so we reinsert it here.
			if _, err := io.WriteString(r.dest, raw+"\n"); err != nil {
				return nil, err
			}
		}

		// Blank lines separate records and keep connections alive.
		if strings.TrimSpace(raw) == "" {
			continue
		}

		return parseLine(raw), nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, nil
}

// split frames lines like bufio.ScanLines. When a line fills the whole
// buffer it switches to discarding: the bytes up to the next newline are
// teed and dropped, then an empty token marks the dropped line.
func (r *Reader) split(data []byte, atEOF bool) (int, []byte, error) {
	if r.discarding {
		n := len(data)
		end := bytes.IndexByte(data, '\n')
		if end >= 0 {
			n = end + 1
		}
		if err := r.teeBytes(data[:n]); err != nil {
			return 0, nil, err
		}
		if end < 0 && !atEOF {
			return n, nil, nil
		}
		if end < 0 {
			if err := r.teeBytes([]byte("\n")); err != nil {
				return 0, nil, err
			}
		}
		r.discarding = false
		r.dropped = true
		return n, []byte{}, nil
	}

	advance, token, err := bufio.ScanLines(data, atEOF)
	if advance == 0 && token == nil && err == nil && len(data) >= maxLineSize {
		r.head = string(data[:oversizedHeadSize])
		r.discarding = true
		if err := r.teeBytes(data); err != nil {
			return 0, nil, err
		}
		return len(data), nil, nil
	}
	return advance, token, err
}

func (r *Reader) teeBytes(b []byte) error {
	if r.dest == nil || len(b) == 0 {
		return nil
	}
	_, err := r.dest.Write(b)
	return err
}

func parseLine(raw string) *Line {
	data, ok := strings.CutPrefix(raw, DataPrefix)
	if !ok {
		return &Line{Raw: raw}
	}

	return &Line{
		Raw:    raw,
		Data:   data,
		IsData: true,
	}
}
