package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// EnsureConsumer creates or updates a durable consumer on the usage stream.
func EnsureConsumer(ctx context.Context, js jetstream.JetStream, name, filterSubject string) (jetstream.Consumer, error) {
	consumer, err := js.CreateOrUpdateConsumer(ctx, StreamUsage, jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", name, StreamUsage, err)
	}
	return consumer, nil
}
