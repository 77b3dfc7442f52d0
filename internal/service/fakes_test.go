package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/repository"
)

type fakeProducts struct {
	byID          map[string]entity.Product
	lastQuery     entity.ProductQuery
	total         int
	featuredLimit int
}

func newFakeProducts(products ...entity.Product) *fakeProducts {
	f := &fakeProducts{byID: make(map[string]entity.Product)}
	for _, p := range products {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Query(_ context.Context, q entity.ProductQuery) ([]entity.Product, int, error) {
	f.lastQuery = q
	var out []entity.Product
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, f.total, nil
}

func (f *fakeProducts) FindByIDOrSlug(_ context.Context, idOrSlug string) (*entity.Product, error) {
	for _, p := range f.byID {
		if p.ID == idOrSlug || p.Slug == idOrSlug {
			p := p
			return &p, nil
		}
	}
	return nil, entity.ErrProductNotFound
}

func (f *fakeProducts) Featured(_ context.Context, limit int) ([]entity.Product, error) {
	f.featuredLimit = limit
	return nil, nil
}

func (f *fakeProducts) Seed(_ context.Context, products []entity.Product) error {
	for _, p := range products {
		f.byID[p.ID] = p
	}
	return nil
}

type fakeCategories struct {
	categories []entity.Category
}

func (f *fakeCategories) FindAll(context.Context) ([]entity.Category, error) {
	return f.categories, nil
}

func (f *fakeCategories) FindByIDOrSlug(_ context.Context, idOrSlug string) (*entity.Category, error) {
	for _, c := range f.categories {
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			c := c
			return &c, nil
		}
	}
	return nil, entity.ErrCategoryNotFound
}

func (f *fakeCategories) Seed(_ context.Context, categories []entity.Category) error {
	f.categories = append(f.categories, categories...)
	return nil
}

type fakeEventStore struct {
	mu      sync.Mutex
	streams map[string][]entity.EventStoreRecord
	now     func() time.Time
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		streams: make(map[string][]entity.EventStoreRecord),
		now:     time.Now,
	}
}

func (f *fakeEventStore) SaveEvents(_ context.Context, streamID, streamType string, expectedVersion int, events []entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := len(f.streams[streamID])
	if expectedVersion >= 0 && expectedVersion != current {
		return fmt.Errorf("%w: expected version %d, got %d", repository.ErrConcurrency, expectedVersion, current)
	}
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		current++
		f.streams[streamID] = append(f.streams[streamID], entity.EventStoreRecord{
			ID:         fmt.Sprintf("%s-%d", streamID, current),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    current,
			EventType:  e.EventType(),
			Payload:    payload,
			CreatedAt:  f.now(),
		})
	}
	return nil
}

func (f *fakeEventStore) LoadEvents(_ context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.EventStoreRecord, len(f.streams[streamID]))
	copy(out, f.streams[streamID])
	return out, nil
}

func (f *fakeEventStore) types(streamID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.streams[streamID] {
		out = append(out, r.EventType)
	}
	return out
}

type published struct {
	topic string
	key   string
	event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{topic: topic, key: key, event: event})
	return nil
}

func (f *fakePublisher) onTopic(topic string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, p := range f.events {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type fakeOrders struct {
	mu        sync.Mutex
	placed    map[string]*entity.PlaceOrder
	confirmed map[string]int
	err       error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{placed: make(map[string]*entity.PlaceOrder), confirmed: make(map[string]int)}
}

func (f *fakeOrders) PlaceOrder(_ context.Context, cmd *entity.PlaceOrder) (*entity.OrderPlaced, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.placed[cmd.OrderID]; ok {
		return nil, nil
	}
	f.placed[cmd.OrderID] = cmd
	return &entity.OrderPlaced{
		OrderID:   cmd.OrderID,
		SessionID: cmd.SessionID,
		Items:     cmd.Items,
		Pricing:   cmd.Pricing,
		PlacedAt:  time.Now().UTC(),
	}, nil
}

func (f *fakeOrders) ConfirmOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed[orderID]++
	return nil
}

func (f *fakeOrders) FindRecent(_ context.Context, sessionID string, limit int) ([]entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Order
	for id, cmd := range f.placed {
		if cmd.SessionID == sessionID && len(out) < limit {
			out = append(out, entity.Order{ID: id, SessionID: sessionID, Items: cmd.Items, Pricing: cmd.Pricing})
		}
	}
	return out, nil
}

// failingCartStore fails every call.
type failingCartStore struct{}

var errStoreDown = errors.New("store down")

func (failingCartStore) Load(context.Context, string) ([]byte, error) { return nil, errStoreDown }
func (failingCartStore) Save(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}
func (failingCartStore) Delete(context.Context, string) error { return errStoreDown }
