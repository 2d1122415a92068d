// Package bus publishes lnurld flow events to NATS JetStream so
// downstream consumers (accounting, session managers) can react to
// channel opens, withdrawals, and logins without polling the node.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects carrying lnurld events.
const (
	SubjectChannelOpened = "lnurl.channel.opened"
	SubjectWithdrawPaid  = "lnurl.withdraw.paid"
	SubjectAuthCompleted = "lnurl.auth.completed"
)

// Event is the envelope published on every subject.
type Event struct {
	ID   uuid.UUID      `json:"id"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data"`
}

// Bus wraps a NATS JetStream connection for publishing lnurld events.
// A nil *Bus is valid and publishes nothing, so callers do not need to
// branch on whether eventing is configured.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect creates a Bus connected to the provided NATS endpoint.
func Connect(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close drains and shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish wraps data in an Event envelope and publishes it to subj.
func (b *Bus) Publish(ctx context.Context, subj string, data map[string]any) error {
	if b == nil {
		return nil
	}
	if subj == "" {
		return errors.New("empty subject")
	}

	event := Event{ID: uuid.New(), At: time.Now().UTC(), Data: data}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subj, raw, nats.Context(ctx))
	return err
}
