package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/parley/pkg/format"
	"github.com/papercomputeco/parley/pkg/stream"
)

// turn is the state of one assistant reply. It exists from the start of a
// send until the reply completes or fails.
type turn struct {
	id     string
	buffer strings.Builder
	msg    Message
	status Status
	done   bool
}

func newTurn(status Status) *turn {
	id := uuid.NewString()
	return &turn{
		id:     id,
		status: status,
		msg: Message{
			ID:   id,
			Role: RoleAssistant,
		},
	}
}

// apply updates the turn for one event. Chunks grow the buffer and the
// display is re-formatted from the whole buffer. An error replaces the
// display without touching the buffer.
func (t *turn) apply(ev stream.Event, now time.Time) {
	switch ev.Kind {
	case stream.KindChunk:
		t.buffer.WriteString(ev.Content)
		t.msg.Raw = t.buffer.String()
		t.msg.Markup = format.Format(t.msg.Raw)
	case stream.KindComplete:
		t.status = StatusConnected
		t.msg.Finalized = &now
		t.done = true
	case stream.KindError:
		t.status = StatusDisconnected
		t.msg.Raw = ev.Content
		t.msg.Markup = format.Format(ev.Content)
	}
}

// fail shows the fallback text in place of the reply.
func (t *turn) fail(fallback string) {
	t.status = StatusDisconnected
	t.msg.Raw = fallback
	t.msg.Markup = format.Format(fallback)
	t.done = true
}

func (t *turn) update(failed bool) Update {
	return Update{
		TurnID: t.id,
		Raw:    t.msg.Raw,
		Markup: t.msg.Markup,
		Status: t.status,
		Done:   t.done,
		Failed: failed,
	}
}
