package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT PUBLISHER
// Domain events go out on a Redis pub/sub channel. Delivery is fire-and-
// forget: downstream consumers (notifications, projections) subscribe, and a
// command handler never fails a request over an undeliverable event.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultEventChannel is the pub/sub channel domain events are published on.
const DefaultEventChannel = "scheduling:events"

// EventPublisher implements shared.EventPublisher on Redis pub/sub.
type EventPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

// NewEventPublisher creates a publisher on the default event channel.
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{
		client:  client,
		channel: DefaultEventChannel,
		timeout: 2 * time.Second,
	}
}

// WithChannel overrides the pub/sub channel.
func (p *EventPublisher) WithChannel(channel string) *EventPublisher {
	p.channel = channel
	return p
}

// envelope is the wire form of a published event.
type envelope struct {
	Type        shared.EventType       `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// Publish implements shared.EventPublisher.
func (p *EventPublisher) Publish(event shared.Event) error {
	data, err := json.Marshal(envelope{
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("event publisher: encode %s: %w", event.EventType(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("event publisher: publish %s: %w", event.EventType(), err)
	}
	return nil
}
