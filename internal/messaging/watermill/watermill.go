package watermill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Aayush8356/Vendora/internal/messaging"
)

// keyMetadata carries the message key alongside the payload.
const keyMetadata = "key"

type channelBroker struct {
	pubSub *gochannel.GoChannel
}

// NewChannelBroker creates an in-process broker for running without Kafka.
// Every subscriber of a topic receives every message, so the group id is ignored.
func NewChannelBroker(logger *slog.Logger) messaging.Broker {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewSlogLogger(logger),
	)
	return &channelBroker{pubSub: pubSub}
}

func (b *channelBroker) PublishEvent(_ context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(keyMetadata, key)
	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *channelBroker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Error subscribing", "topic", topic, "group", groupID, "err", err)
		return
	}

	for msg := range messages {
		if err := handler(msg.Context(), msg.Payload); err != nil {
			slog.Error("Error handling message", "topic", topic, "key", msg.Metadata.Get(keyMetadata), "err", err)
		}
		msg.Ack()
	}
	slog.Info("Consumer shutting down", "topic", topic)
}

func (b *channelBroker) Close() error {
	return b.pubSub.Close()
}
