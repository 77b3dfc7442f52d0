package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/messaging"
	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/google/uuid"
)

const cartStreamType = "cart"

// CartService owns the live cart sessions. A session is opened from its stored
// snapshot, else by replaying its journal, else empty.
type CartService struct {
	products    repository.ProductRepository
	persistence *CartPersistence
	eventStore  repository.EventStore
	publisher   messaging.Publisher
	rules       entity.PricingRules
	cartTTL     time.Duration
	idleTimeout time.Duration

	newID func() string
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*CartSession
}

// CartServiceConfig holds the tunables of a CartService.
type CartServiceConfig struct {
	Rules       entity.PricingRules
	CartTTL     time.Duration
	IdleTimeout time.Duration
}

func NewCartService(
	products repository.ProductRepository,
	persistence *CartPersistence,
	eventStore repository.EventStore,
	publisher messaging.Publisher,
	cfg CartServiceConfig,
) *CartService {
	return &CartService{
		products:    products,
		persistence: persistence,
		eventStore:  eventStore,
		publisher:   publisher,
		rules:       cfg.Rules,
		cartTTL:     cfg.CartTTL,
		idleTimeout: cfg.IdleTimeout,
		newID:       uuid.NewString,
		clock:       func() time.Time { return time.Now().UTC() },
		sessions:    make(map[string]*CartSession),
	}
}

// Rules returns the pricing rules every cart is computed with.
func (s *CartService) Rules() entity.PricingRules {
	return s.rules
}

// Session returns the live session, opening it on first use.
func (s *CartService) Session(ctx context.Context, sessionID string) *CartSession {
	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		return sess
	}
	s.mu.Unlock()

	cart := s.open(ctx, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have opened it while we were loading.
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	sess := newCartSession(sessionID, cart, s.rules, s.newID, s.clock, s.afterChange)
	s.sessions[sessionID] = sess
	return sess
}

func (s *CartService) open(ctx context.Context, sessionID string) entity.Cart {
	if s.persistence != nil {
		if cart := s.persistence.Load(ctx, sessionID); cart != nil {
			slog.Debug("Cart restored from snapshot", "session_id", sessionID, "lines", len(cart.Items))
			return *cart
		}
	}

	if s.eventStore != nil {
		cart, err := s.replay(ctx, sessionID)
		if err != nil {
			slog.Warn("Failed to replay cart journal, starting empty", "session_id", sessionID, "err", err)
			return entity.NewCart(s.rules)
		}
		if cart != nil {
			slog.Debug("Cart restored from journal", "session_id", sessionID, "lines", len(cart.Items))
			return *cart
		}
	}

	return entity.NewCart(s.rules)
}

// replay rebuilds a cart from its journal, starting after the last clear. A journal
// whose last entry is older than the cart TTL is treated as expired.
func (s *CartService) replay(ctx context.Context, sessionID string) (*entity.Cart, error) {
	records, err := s.eventStore.LoadEvents(ctx, entity.CartStreamID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart history: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	last := records[len(records)-1]
	if s.cartTTL > 0 && !last.CreatedAt.IsZero() && s.clock().Sub(last.CreatedAt) > s.cartTTL {
		return nil, nil
	}

	// Nothing before the last clear can affect the cart.
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].EventType == (entity.ClearCart{}).EventType() {
			records = records[i+1:]
			break
		}
	}
	if len(records) == 0 {
		return nil, nil
	}

	agg := entity.NewCartAggregate(sessionID, s.rules)
	if err := agg.Rehydrate(records); err != nil {
		return nil, fmt.Errorf("failed to rehydrate cart aggregate: %w", err)
	}
	return &agg.Cart, nil
}

// afterChange saves (or, for an emptied cart, deletes) the snapshot, journals and
// announces an applied command. It runs under the session lock, so writes land in
// dispatch order. Failures are only logged.
func (s *CartService) afterChange(ctx context.Context, sessionID string, cmd entity.CartCommand, cart entity.Cart) {
	if s.persistence != nil {
		if cart.IsEmpty() {
			s.persistence.Delete(ctx, sessionID)
		} else {
			s.persistence.Save(ctx, sessionID, cart)
		}
	}

	if s.eventStore != nil {
		err := s.eventStore.SaveEvents(ctx, entity.CartStreamID(sessionID), cartStreamType, -1, []entity.Event{cmd})
		if err != nil {
			slog.Error("Failed to journal cart command", "session_id", sessionID, "command", cmd.EventType(), "err", err)
		}
	}

	if s.publisher != nil {
		evt := entity.CartUpdated{
			SessionID: sessionID,
			Command:   cmd.EventType(),
			ItemCount: cart.ItemCount(),
			Lines:     len(cart.Items),
			Total:     cart.Total,
			UpdatedAt: s.clock(),
		}
		if err := s.publisher.PublishEvent(ctx, messaging.TopicCartsUpdated, sessionID, evt); err != nil {
			slog.Error("Failed to publish CartUpdated", "session_id", sessionID, "err", err)
		}
	}
}

// Cart returns the current snapshot of a session.
func (s *CartService) Cart(ctx context.Context, sessionID string) entity.Cart {
	return s.Session(ctx, sessionID).Snapshot()
}

// withSession runs fn against the live session, resolving it again when Sweep
// retired the one fn was handed.
func (s *CartService) withSession(ctx context.Context, sessionID string, fn func(*CartSession) (entity.Cart, error)) (entity.Cart, error) {
	for {
		cart, err := fn(s.Session(ctx, sessionID))
		if !errors.Is(err, errSessionEvicted) {
			return cart, err
		}
		slog.Debug("Cart session was evicted mid-request, retrying", "session_id", sessionID)
	}
}

// Checkout hands the session's non-empty cart to place and clears it on success.
func (s *CartService) Checkout(ctx context.Context, sessionID string, place func(entity.Cart) error) error {
	_, err := s.withSession(ctx, sessionID, func(sess *CartSession) (entity.Cart, error) {
		return entity.Cart{}, sess.Checkout(ctx, place)
	})
	return err
}

// AddItem looks the product up and adds it to the session's cart.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int, variants map[string]string) (entity.Cart, error) {
	slog.Info("Service: Adding item to cart", "session_id", sessionID, "product_id", productID, "quantity", quantity)

	if quantity <= 0 {
		return s.Cart(ctx, sessionID), fmt.Errorf("%w: quantity must be positive, got %d", entity.ErrInvalidQuantity, quantity)
	}

	selection, err := entity.NewVariantSelection(variants)
	if err != nil {
		return s.Cart(ctx, sessionID), err
	}

	product, err := s.products.FindByIDOrSlug(ctx, productID)
	if err != nil {
		return s.Cart(ctx, sessionID), err
	}

	return s.withSession(ctx, sessionID, func(sess *CartSession) (entity.Cart, error) {
		if err := checkStock(sess, *product, selection, quantity); err != nil {
			return sess.Snapshot(), err
		}
		return sess.AddItem(ctx, *product, quantity, selection)
	})
}

// checkStock rejects an add that would hold more units than the product, or any
// selected variant with its own stock count, has available.
func checkStock(sess *CartSession, p entity.Product, selection entity.VariantSelection, quantity int) error {
	if sess.QuantityOf(p.ID)+quantity > p.Stock {
		return fmt.Errorf("%w: %d of %s available", entity.ErrInsufficientStock, p.Stock, p.ID)
	}
	for _, opt := range selection {
		v, ok := p.FindVariant(opt.Name, opt.Value)
		if !ok || v.Stock == nil {
			continue
		}
		if sess.QuantityOfOption(p.ID, opt)+quantity > *v.Stock {
			return fmt.Errorf("%w: %d of %s %s=%s available", entity.ErrInsufficientStock, *v.Stock, p.ID, opt.Name, opt.Value)
		}
	}
	return nil
}

// UpdateQuantity changes a line's quantity; zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (entity.Cart, error) {
	return s.withSession(ctx, sessionID, func(sess *CartSession) (entity.Cart, error) {
		return sess.UpdateQuantity(ctx, lineID, quantity)
	})
}

// RemoveItem drops a line from the session's cart.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, lineID string) entity.Cart {
	cart, _ := s.withSession(ctx, sessionID, func(sess *CartSession) (entity.Cart, error) {
		return sess.RemoveItem(ctx, lineID)
	})
	return cart
}

// Clear empties the session's cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) entity.Cart {
	cart, _ := s.withSession(ctx, sessionID, func(sess *CartSession) (entity.Cart, error) {
		return sess.Clear(ctx)
	})
	return cart
}

// ItemCount returns the badge count of a session's cart.
func (s *CartService) ItemCount(ctx context.Context, sessionID string) int {
	return s.Session(ctx, sessionID).ItemCount()
}

// Sweep evicts sessions idle for longer than the idle timeout and returns how many
// were dropped. Evicted carts reopen from their snapshot on next use.
func (s *CartService) Sweep(now time.Time) int {
	if s.idleTimeout <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.retireIfIdle(now, s.idleTimeout) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// ActiveSessions is the number of sessions held in memory.
func (s *CartService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
