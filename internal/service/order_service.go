package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/messaging"
	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/google/uuid"
)

const (
	orderStreamType    = "order"
	defaultRecentLimit = 50
)

func orderStreamID(orderID string) string {
	return "order-" + orderID
}

// OrderService turns carts into orders and confirms them.
type OrderService struct {
	orderRepo  repository.OrderRepository
	carts      *CartService
	eventStore repository.EventStore
	publisher  messaging.Publisher
	newID      func() string
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	carts *CartService,
	eventStore repository.EventStore,
	publisher messaging.Publisher,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		carts:      carts,
		eventStore: eventStore,
		publisher:  publisher,
		newID:      uuid.NewString,
	}
}

// RecentOrders returns the latest orders of a session.
func (s *OrderService) RecentOrders(ctx context.Context, sessionID string, limit int) ([]entity.Order, error) {
	if limit <= 0 || limit > entity.MaxPageLimit {
		limit = defaultRecentLimit
	}
	orders, err := s.orderRepo.FindRecent(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []entity.Order{}
	}
	return orders, nil
}

// Checkout places an order for the session's cart at the prices the cart
// engine computed, then clears the cart.
func (s *OrderService) Checkout(ctx context.Context, sessionID string) (*entity.Order, error) {
	var order *entity.Order

	err := s.carts.Checkout(ctx, sessionID, func(cart entity.Cart) error {
		cmd := &entity.PlaceOrder{
			OrderID:   s.newID(),
			SessionID: sessionID,
			Items:     orderItems(cart),
			Pricing: entity.OrderPricing{
				Subtotal: cart.Subtotal,
				Tax:      cart.Tax,
				Shipping: cart.Shipping,
				Total:    cart.Total,
			},
		}
		slog.Info("Service: Placing order", "order_id", cmd.OrderID, "session_id", sessionID, "items", len(cmd.Items))

		placed, err := s.orderRepo.PlaceOrder(ctx, cmd)
		if err != nil {
			return fmt.Errorf("failed to place order: %w", err)
		}
		if placed == nil {
			return fmt.Errorf("order %s was already placed", cmd.OrderID)
		}

		if err := s.eventStore.SaveEvents(ctx, orderStreamID(placed.OrderID), orderStreamType, 0, []entity.Event{*placed}); err != nil {
			slog.Error("Failed to journal OrderPlaced", "order_id", placed.OrderID, "err", err)
		}

		// Publish Event to message broker for downstream consumers
		if err := s.publisher.PublishEvent(ctx, messaging.TopicOrdersPlaced, placed.OrderID, placed); err != nil {
			slog.Error("Failed to publish OrderPlaced", "order_id", placed.OrderID, "err", err)
		}

		order = &entity.Order{
			ID:        placed.OrderID,
			SessionID: sessionID,
			Items:     placed.Items,
			Pricing:   placed.Pricing,
			Status:    entity.OrderPlacedStatus,
			CreatedAt: placed.PlacedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func orderItems(cart entity.Cart) []entity.OrderItem {
	items := make([]entity.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, entity.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Variants:  line.Variants,
			Price:     line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	return items
}

// HandleOrderPlaced is triggered by the message broker when an order is placed.
func (s *OrderService) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var event entity.OrderPlaced
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode OrderPlaced: %w", err)
	}
	slog.Info("Service: Confirming order", "order_id", event.OrderID)

	records, err := s.eventStore.LoadEvents(ctx, orderStreamID(event.OrderID))
	if err != nil {
		return fmt.Errorf("failed to load order events: %w", err)
	}
	version := 0
	for _, rec := range records {
		if rec.EventType == (entity.OrderConfirmed{}).EventType() {
			slog.Info("Order already confirmed", "order_id", event.OrderID)
			return nil
		}
		version = rec.Version
	}

	confirmed := entity.OrderConfirmed{
		OrderID:     event.OrderID,
		ConfirmedAt: time.Now().UTC(),
	}
	if err := s.eventStore.SaveEvents(ctx, orderStreamID(event.OrderID), orderStreamType, version, []entity.Event{confirmed}); err != nil {
		return fmt.Errorf("failed to save OrderConfirmed event: %w", err)
	}

	// Update Read Model Projection (orders table)
	if err := s.orderRepo.ConfirmOrder(ctx, event.OrderID); err != nil {
		return err
	}

	slog.Info("✅ Order confirmed", "order_id", event.OrderID)
	return nil
}
