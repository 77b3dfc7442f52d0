package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
)

// ErrCartNotFound is returned by a CartStore when no snapshot exists for a session.
var ErrCartNotFound = errors.New("cart not found")

// ErrConcurrency is returned by an EventStore when the expected stream version is stale.
var ErrConcurrency = errors.New("concurrency exception")

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	// Query returns one page of published products matching a normalized query.
	Query(ctx context.Context, q entity.ProductQuery) ([]entity.Product, int, error)
	FindByIDOrSlug(ctx context.Context, idOrSlug string) (*entity.Product, error)
	Featured(ctx context.Context, limit int) ([]entity.Product, error)
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// CategoryRepository handles persistence for Categories.
type CategoryRepository interface {
	FindAll(ctx context.Context) ([]entity.Category, error)
	FindByIDOrSlug(ctx context.Context, idOrSlug string) (*entity.Category, error)
	Seed(ctx context.Context, categories []entity.Category) error
}

// OrderRepository handles persistence for Orders.
type OrderRepository interface {
	// PlaceOrder stores the order and decrements stock. It returns nil, nil when
	// the order id was already placed.
	PlaceOrder(ctx context.Context, cmd *entity.PlaceOrder) (*entity.OrderPlaced, error)
	ConfirmOrder(ctx context.Context, orderID string) error
	FindRecent(ctx context.Context, sessionID string, limit int) ([]entity.Order, error)
}

// CartStore keeps the serialized cart snapshot of each session.
type CartStore interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// CartPurger is implemented by CartStores that cannot expire snapshots on their own.
type CartPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// EventStore handles appending and loading events for an aggregate stream.
// An expectedVersion below zero appends without a version check.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}
