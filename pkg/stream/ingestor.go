package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/sse"
	"github.com/papercomputeco/parley/pkg/utils"
)

var errLineTooLong = errors.New("line exceeds the maximum line size")

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger used to report skipped lines at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger.OrNop(l)
	}
}

// WithTee writes every raw line of the stream, newline terminated, to w.
// Replaying the written bytes yields the same events.
func WithTee(w io.Writer) Option {
	return func(i *Ingestor) {
		i.tee = w
	}
}

// Ingestor yields decoded events from a response stream. It is lazy, finite
// and not restartable: once Next has returned io.EOF or a failure, every
// later call returns the same result.
type Ingestor struct {
	reader *sse.Reader
	logger *slog.Logger
	tee    io.Writer

	line    int
	skipped int
	done    error
}

// NewIngestor returns an Ingestor reading from r.
func NewIngestor(r io.Reader, opts ...Option) *Ingestor {
	i := &Ingestor{
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}

	i.reader = sse.NewTeeReader(r, i.tee)

	return i
}

// Next returns the next event. It blocks until a complete record line is
// available or the stream ends. At a clean end of stream it returns io.EOF;
// a read failure is returned as a *FailedError matching ErrStreamFailed.
// Lines that are not well-formed records are skipped, and so are lines
// over 1MB.
func (i *Ingestor) Next() (Event, error) {
	if i.done != nil {
		return Event{}, i.done
	}

	for {
		line, err := i.reader.Next()
		if err != nil {
			i.done = Failed(fmt.Errorf("reading stream: %w", err))
			return Event{}, i.done
		}
		if line == nil {
			i.done = io.EOF
			return Event{}, io.EOF
		}
		i.line++

		if line.Oversized {
			i.skip(line.Raw, errLineTooLong)
			continue
		}

		if !line.IsData {
			i.skip(line.Raw, errors.New("no data prefix"))
			continue
		}

		ev, err := Decode(line.Data)
		if err != nil {
			i.skip(line.Raw, err)
			continue
		}

		return ev, nil
	}
}

// All returns an iterator over the remaining events. Iteration stops after
// the first failure, which is yielded with a zero Event. A clean end of stream
// ends iteration without yielding an error.
func (i *Ingestor) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := i.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Skipped returns the number of lines skipped so far.
func (i *Ingestor) Skipped() int {
	return i.skipped
}

func (i *Ingestor) skip(raw string, reason error) {
	i.skipped++
	i.logger.Debug("skipping stream line",
		"line", i.line,
		"reason", reason,
		"raw", utils.Truncate(raw, 120),
	)
}

// Ingest reads every event from r and hands it to sink in stream order.
// It returns nil at a clean end of stream, the sink's error if the sink
// fails, or a failure matching ErrStreamFailed if the transport fails or
// ctx is done.
func Ingest(ctx context.Context, r io.Reader, sink func(Event) error, opts ...Option) error {
	ing := NewIngestor(r, opts...)

	for ev, err := range ing.All() {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Failed(ctxErr)
		}
		if err := sink(ev); err != nil {
			return err
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Failed(ctxErr)
	}

	return nil
}
