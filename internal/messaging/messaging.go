package messaging

import "context"

// Topics carried on the broker.
const (
	TopicCartsUpdated = "carts.updated"
	TopicOrdersPlaced = "orders.placed"
)

// Handler processes one message payload. A returned error is logged by the consumer.
type Handler func(ctx context.Context, payload []byte) error

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler Handler)
}

// Broker is a Publisher and Subscriber that owns connections.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}
