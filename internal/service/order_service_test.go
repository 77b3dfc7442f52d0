package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/messaging"
)

func newOrderFixture(t *testing.T) (*cartFixture, *fakeOrders, *OrderService) {
	t.Helper()
	f := newCartFixture(t)
	orders := newFakeOrders()
	svc := NewOrderService(orders, f.svc, f.events, f.pub)
	svc.newID = func() string { return "order-1" }
	return f, orders, svc
}

func TestOrderService_CheckoutEmptyCart(t *testing.T) {
	_, orders, svc := newOrderFixture(t)

	_, err := svc.Checkout(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orders.placed)
}

func TestOrderService_CheckoutPlacesOrderAndClearsCart(t *testing.T) {
	f, orders, svc := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "s1", "p-mug", 2, map[string]string{"glaze": "ocean"})
	require.NoError(t, err)
	cart := f.svc.Cart(ctx, "s1")

	order, err := svc.Checkout(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, entity.OrderPlacedStatus, order.Status)
	assert.Equal(t, cart.Total, order.Pricing.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 21.5, order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)

	require.Contains(t, orders.placed, "order-1")
	assert.True(t, f.svc.Cart(ctx, "s1").IsEmpty())
	assert.Equal(t, []string{"OrderPlaced"}, f.events.types(orderStreamID("order-1")))

	placed := f.pub.onTopic(messaging.TopicOrdersPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, "order-1", placed[0].key)
}

func TestOrderService_FailedPlacementKeepsCart(t *testing.T) {
	f, orders, svc := newOrderFixture(t)
	ctx := context.Background()
	orders.err = entity.ErrInsufficientStock

	_, err := f.svc.AddItem(ctx, "s1", "p-lamp", 1, nil)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, "s1")
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)
	assert.Equal(t, 1, f.svc.ItemCount(ctx, "s1"))
	assert.Empty(t, f.pub.onTopic(messaging.TopicOrdersPlaced))
}

func TestOrderService_HandleOrderPlacedIsIdempotent(t *testing.T) {
	f, orders, svc := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "s1", "p-mug", 1, nil)
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, "s1")
	require.NoError(t, err)

	payload, err := json.Marshal(f.pub.onTopic(messaging.TopicOrdersPlaced)[0].event)
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderPlaced(ctx, payload))
	require.NoError(t, svc.HandleOrderPlaced(ctx, payload))

	assert.Equal(t, 1, orders.confirmed["order-1"])
	assert.Equal(t, []string{"OrderPlaced", "OrderConfirmed"}, f.events.types(orderStreamID("order-1")))
}

func TestOrderService_HandleOrderPlacedRejectsGarbage(t *testing.T) {
	_, _, svc := newOrderFixture(t)
	assert.Error(t, svc.HandleOrderPlaced(context.Background(), []byte("{")))
}

func TestOrderService_RecentOrders(t *testing.T) {
	f, _, svc := newOrderFixture(t)
	ctx := context.Background()

	list, err := svc.RecentOrders(ctx, "s1", 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = f.svc.AddItem(ctx, "s1", "p-mug", 1, nil)
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, "s1")
	require.NoError(t, err)

	list, err = svc.RecentOrders(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "order-1", list[0].ID)

	list, err = svc.RecentOrders(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
