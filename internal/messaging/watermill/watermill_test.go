package watermill

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/messaging"
)

func TestChannelBroker_PublishConsume(t *testing.T) {
	broker := NewChannelBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan entity.CartUpdated, 16)
	subscribed := make(chan struct{})
	go func() {
		close(subscribed)
		broker.Consume(ctx, messaging.TopicCartsUpdated, "test", func(_ context.Context, payload []byte) error {
			var evt entity.CartUpdated
			if err := json.Unmarshal(payload, &evt); err != nil {
				return err
			}
			received <- evt
			return nil
		})
	}()
	<-subscribed

	// The subscription is registered asynchronously; retry until it is live.
	require.Eventually(t, func() bool {
		err := broker.PublishEvent(ctx, messaging.TopicCartsUpdated, "s1", entity.CartUpdated{SessionID: "s1", ItemCount: 3})
		if err != nil {
			return false
		}
		select {
		case evt := <-received:
			return evt.SessionID == "s1" && evt.ItemCount == 3
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
