package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aayush8356/Vendora/internal/messaging"
	kafkaGo "github.com/segmentio/kafka-go"
)

type kafkaBroker struct {
	brokers []string
	writer  *kafkaGo.Writer
}

// NewKafkaBroker creates a Kafka broker. One writer is shared by every topic.
func NewKafkaBroker(brokers []string) messaging.Broker {
	return &kafkaBroker{
		brokers: brokers,
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Balancer:               &kafkaGo.Hash{},
			RequiredAcks:           kafkaGo.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

func (k *kafkaBroker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Keyed by session so one cart's events stay in order on a single partition.
	err = k.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// maxAttempts bounds redelivery of one message before it is skipped.
const maxAttempts = 3

// Consume commits a message only after the handler has seen it, so a crash
// redelivers it. Handlers must therefore be idempotent.
func (k *kafkaBroker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Consumer shutting down", "topic", topic)
				return
			}
			slog.Error("Error reading message", "topic", topic, "err", err)
			continue
		}

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err = handler(ctx, msg.Value)
			if err == nil || ctx.Err() != nil {
				break
			}
			slog.Warn("Retrying message", "topic", topic, "key", string(msg.Key), "attempt", attempt, "err", err)
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Error handling message, skipping", "topic", topic, "key", string(msg.Key), "offset", msg.Offset, "err", err)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			slog.Error("Error committing message", "topic", topic, "offset", msg.Offset, "err", err)
		}
	}
}

func (k *kafkaBroker) Close() error {
	return k.writer.Close()
}
