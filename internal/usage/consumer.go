package usage

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/notewise-app/notewise/internal/events"
	"github.com/notewise-app/notewise/internal/metrics"
)

const consumerName = "usage-persister"

// Inserter persists usage entries.
type Inserter interface {
	Insert(ctx context.Context, e *Entry) error
}

// message is the part of jetstream.Msg the consumer uses.
type message interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// Consumer moves usage events from the stream into the database.
type Consumer struct {
	store Inserter
	js    jetstream.JetStream
}

func NewConsumer(store Inserter, js jetstream.JetStream) *Consumer {
	return &Consumer{store: store, js: js}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	consumer, err := events.EnsureConsumer(ctx, c.js, consumerName, events.SubjectUsage)
	if err != nil {
		return err
	}

	slog.Info("usage consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(events.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("usage consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg message) {
	var ev events.UsageEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		slog.Error("usage consumer: unmarshaling event", "error", err)
		metrics.UsageEventsPersistedTotal.WithLabelValues("malformed").Inc()
		_ = msg.Term()
		return
	}

	if err := c.store.Insert(ctx, FromEvent(ev)); err != nil {
		slog.Error("usage consumer: persisting event", "error", err, "event_id", ev.ID)
		metrics.UsageEventsPersistedTotal.WithLabelValues("retry").Inc()
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	metrics.UsageEventsPersistedTotal.WithLabelValues("stored").Inc()
	slog.Debug("usage consumer: persisted event",
		"event_id", ev.ID, "user_id", ev.UserID, "outcome", ev.Outcome)
}
