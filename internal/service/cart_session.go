package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
)

// ErrEmptyCart is returned when checking out a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// errSessionEvicted is returned by a session that Sweep has retired. The caller
// re-resolves the session and retries.
var errSessionEvicted = errors.New("cart session evicted")

// changeFunc runs after a command was applied, while the session is still locked.
type changeFunc func(ctx context.Context, sessionID string, cmd entity.CartCommand, cart entity.Cart)

// CartSession is the state container of one shopper's cart. Every mutation
// goes through the reducer under the session lock, so commands are applied
// in the order they were dispatched.
type CartSession struct {
	id    string
	rules entity.PricingRules
	newID func() string
	clock func() time.Time

	mu       sync.Mutex
	cart     entity.Cart
	lastUsed time.Time
	evicted  bool
	onChange changeFunc
}

func newCartSession(id string, cart entity.Cart, rules entity.PricingRules, newID func() string, clock func() time.Time, onChange changeFunc) *CartSession {
	return &CartSession{
		id:       id,
		rules:    rules,
		newID:    newID,
		clock:    clock,
		cart:     cart,
		lastUsed: clock(),
		onChange: onChange,
	}
}

// ID returns the session identifier.
func (s *CartSession) ID() string {
	return s.id
}

// AddItem adds quantity units of a product under a variant selection.
func (s *CartSession) AddItem(ctx context.Context, p entity.Product, quantity int, selection entity.VariantSelection) (entity.Cart, error) {
	cmd, err := entity.NewAddItem(p, quantity, selection, s.newID(), s.clock())
	if err != nil {
		return s.Snapshot(), err
	}
	return s.dispatch(ctx, cmd)
}

// RemoveItem drops a line. Unknown ids leave the cart unchanged.
func (s *CartSession) RemoveItem(ctx context.Context, lineID string) (entity.Cart, error) {
	return s.dispatch(ctx, entity.RemoveItem{LineID: lineID})
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *CartSession) UpdateQuantity(ctx context.Context, lineID string, quantity int) (entity.Cart, error) {
	return s.dispatch(ctx, entity.UpdateQuantity{LineID: lineID, Quantity: quantity})
}

// Clear empties the cart.
func (s *CartSession) Clear(ctx context.Context) (entity.Cart, error) {
	return s.dispatch(ctx, entity.ClearCart{At: s.clock()})
}

// ItemCount is the sum of all line quantities.
func (s *CartSession) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

// Total is the total of the current snapshot.
func (s *CartSession) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.GrandTotal()
}

// IsInCart reports whether any line holds the product, whatever its variants.
func (s *CartSession) IsInCart(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.IsInCart(productID)
}

// QuantityOf sums the quantities of every line holding the product.
func (s *CartSession) QuantityOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.cart.Items {
		if item.ProductID == productID {
			n += item.Quantity
		}
	}
	return n
}

// QuantityOfOption sums the quantities of the product's lines that selected opt.
func (s *CartSession) QuantityOfOption(productID string, opt entity.VariantOption) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.cart.Items {
		if item.ProductID != productID {
			continue
		}
		for _, chosen := range item.Variants {
			if chosen == opt {
				n += item.Quantity
				break
			}
		}
	}
	return n
}

// Snapshot returns a copy of the current cart.
func (s *CartSession) Snapshot() entity.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCart(s.cart)
}

// Checkout hands a non-empty snapshot to place and clears the cart when it succeeds.
// The session stays locked throughout so no mutation slips in between.
func (s *CartSession) Checkout(ctx context.Context, place func(entity.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return errSessionEvicted
	}
	if s.cart.IsEmpty() {
		return ErrEmptyCart
	}
	if err := place(copyCart(s.cart)); err != nil {
		return err
	}
	_, err := s.applyLocked(ctx, entity.ClearCart{At: s.clock()})
	return err
}

func (s *CartSession) dispatch(ctx context.Context, cmd entity.CartCommand) (entity.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, cmd)
}

func (s *CartSession) applyLocked(ctx context.Context, cmd entity.CartCommand) (entity.Cart, error) {
	if s.evicted {
		return copyCart(s.cart), errSessionEvicted
	}
	s.lastUsed = s.clock()

	next, err := entity.Reduce(s.cart, cmd, s.rules)
	if err != nil {
		return copyCart(s.cart), err
	}
	s.cart = next
	if s.onChange != nil {
		s.onChange(ctx, s.id, cmd, next)
	}
	return copyCart(next), nil
}

// retireIfIdle marks the session evicted when it has been idle past the timeout.
// A session busy with a mutation is skipped rather than waited for.
func (s *CartSession) retireIfIdle(now time.Time, idleTimeout time.Duration) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	if now.Sub(s.lastUsed) <= idleTimeout {
		return false
	}
	s.evicted = true
	return true
}

func copyCart(c entity.Cart) entity.Cart {
	items := make([]entity.CartLineItem, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}
