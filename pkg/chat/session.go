package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/parley/pkg/format"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/stream"
)

const (
	// DefaultGreeting opens every transcript.
	DefaultGreeting = "Hello! I'm your AI assistant. How can I help you today?"

	// DefaultFallback replaces the reply when a turn fails in transport.
	DefaultFallback = "Sorry, there was an error processing your request. Please try again."
)

// Session holds one conversation with the chat service. At most one turn
// streams at a time; overlapping sends and clears are rejected with
// ErrTurnInProgress. Read methods are safe to call from other goroutines
// while a turn streams.
type Session struct {
	service  Service
	logger   *slog.Logger
	greeting string
	fallback string
	recorder io.Writer
	now      func() time.Time

	streaming atomic.Bool

	mu       sync.RWMutex
	status   Status
	messages []Message
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithGreeting sets the first assistant message of the transcript.
func WithGreeting(text string) SessionOption {
	return func(s *Session) {
		if text != "" {
			s.greeting = text
		}
	}
}

// WithFallback sets the text shown when a turn fails in transport.
func WithFallback(text string) SessionOption {
	return func(s *Session) {
		if text != "" {
			s.fallback = text
		}
	}
}

// WithLogger sets the session logger. It is also handed to the stream
// ingestor.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger.OrNop(l)
	}
}

// WithRecorder writes the raw bytes of every reply stream to w.
func WithRecorder(w io.Writer) SessionOption {
	return func(s *Session) {
		s.recorder = w
	}
}

// WithClock replaces time.Now for finalization timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession returns a Session whose transcript holds only the greeting.
// The initial status is StatusConnected.
func NewSession(service Service, opts ...SessionOption) *Session {
	s := &Session{
		service:  service,
		logger:   logger.Nop(),
		greeting: DefaultGreeting,
		fallback: DefaultFallback,
		now:      time.Now,
		status:   StatusConnected,
	}
	for _, opt := range opts {
		opt(s)
	}

	at := s.now()
	s.messages = []Message{{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Raw:       s.greeting,
		Markup:    format.Format(s.greeting),
		Finalized: &at,
	}}

	return s
}

// Send runs one turn: it records the user message, streams the reply and
// calls onUpdate after every change to the reply. onUpdate runs on the
// calling goroutine and may be nil.
//
// A transport failure shows the fallback text, sets StatusDisconnected and
// is returned as an error matching stream.ErrStreamFailed. The session is
// ready for the next turn whatever the outcome.
func (s *Session) Send(ctx context.Context, text string, onUpdate func(Update)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	if !s.streaming.CompareAndSwap(false, true) {
		return ErrTurnInProgress
	}
	defer s.streaming.Store(false)

	if onUpdate == nil {
		onUpdate = func(Update) {}
	}

	t := s.startTurn(text)
	log := s.logger.With("turn", t.id)
	log.Debug("starting turn", "message_length", len(text))

	body, err := s.service.Send(ctx, text)
	if err != nil {
		err = stream.Failed(err)
		log.Warn("turn failed", "error", err)
		s.failTurn(t, onUpdate)
		return err
	}
	defer body.Close()

	opts := []stream.Option{stream.WithLogger(log)}
	if s.recorder != nil {
		opts = append(opts, stream.WithTee(s.recorder))
	}

	err = stream.Ingest(ctx, body, func(ev stream.Event) error {
		s.applyEvent(t, ev, onUpdate)
		return nil
	}, opts...)
	if err != nil {
		log.Warn("turn failed", "error", err)
		s.failTurn(t, onUpdate)
		return err
	}

	if !t.done {
		t.done = true
		onUpdate(t.update(false))
	}
	log.Debug("turn finished", "status", t.status.String(), "length", t.buffer.Len())

	return nil
}

// Clear asks the service to discard its history and then drops every
// transcript entry except the greeting. It is rejected while a turn
// streams. On error the transcript is unchanged.
func (s *Session) Clear(ctx context.Context) error {
	if !s.streaming.CompareAndSwap(false, true) {
		return ErrTurnInProgress
	}
	defer s.streaming.Store(false)

	if err := s.service.Clear(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.messages = s.messages[:1]
	s.mu.Unlock()

	s.logger.Debug("conversation cleared")
	return nil
}

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Streaming reports whether a turn is in progress.
func (s *Session) Streaming() bool {
	return s.streaming.Load()
}

// Messages returns a copy of the transcript, greeting first.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// startTurn appends the user message and an empty assistant message for
// the reply.
func (s *Session) startTurn(text string) *turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Raw:       text,
		Markup:    format.Format(text),
		Finalized: &at,
	})

	t := newTurn(s.status)
	s.messages = append(s.messages, t.msg)
	return t
}

func (s *Session) applyEvent(t *turn, ev stream.Event, onUpdate func(Update)) {
	s.mu.Lock()
	t.apply(ev, s.now())
	s.publish(t)
	s.mu.Unlock()

	onUpdate(t.update(false))
}

func (s *Session) failTurn(t *turn, onUpdate func(Update)) {
	s.mu.Lock()
	t.fail(s.fallback)
	s.publish(t)
	s.mu.Unlock()

	onUpdate(t.update(true))
}

// publish copies the turn state into the transcript. Callers hold mu.
func (s *Session) publish(t *turn) {
	s.status = t.status
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == t.id {
			s.messages[i] = t.msg
			return
		}
	}
}
