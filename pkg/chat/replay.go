package chat

import (
	"context"
	"io"
	"time"

	"github.com/papercomputeco/parley/pkg/stream"
)

// Replay applies a recorded reply stream with the same rules as a live
// turn. Each complete event closes one assistant message; trailing events
// without a complete form a last, unfinalized message. It returns the
// messages, the resulting status, and any stream failure.
func Replay(ctx context.Context, r io.Reader, opts ...stream.Option) ([]Message, Status, error) {
	var msgs []Message
	status := StatusConnected
	t := newTurn(status)
	touched := false

	err := stream.Ingest(ctx, r, func(ev stream.Event) error {
		t.apply(ev, time.Now())
		touched = true
		status = t.status

		if ev.Kind == stream.KindComplete {
			msgs = append(msgs, t.msg)
			t = newTurn(status)
			touched = false
		}
		return nil
	}, opts...)

	if touched {
		msgs = append(msgs, t.msg)
	}

	if err != nil {
		return msgs, StatusDisconnected, err
	}
	return msgs, status, nil
}
