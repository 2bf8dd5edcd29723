package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes usage events to JetStream.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishUsage publishes ev, assigning an id if it has none. The id doubles
// as the JetStream message id so retried publishes are deduplicated.
func (p *Publisher) PublishUsage(ctx context.Context, ev UsageEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling usage event: %w", err)
	}
	if _, err := p.js.Publish(ctx, SubjectUsage, payload, jetstream.WithMsgID(ev.ID.String())); err != nil {
		return fmt.Errorf("publishing to %s: %w", SubjectUsage, err)
	}
	return nil
}
