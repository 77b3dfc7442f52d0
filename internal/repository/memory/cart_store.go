package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Aayush8356/Vendora/internal/repository"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// CartStore keeps cart snapshots in process memory.
type CartStore struct {
	mu    sync.RWMutex
	store map[string]entry
	now   func() time.Time
}

// NewCartStore creates an empty in-memory CartStore.
func NewCartStore() *CartStore {
	return &CartStore{
		store: make(map[string]entry),
		now:   time.Now,
	}
}

var (
	_ repository.CartStore  = (*CartStore)(nil)
	_ repository.CartPurger = (*CartStore)(nil)
)

func (s *CartStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.store[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, repository.ErrCartNotFound
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		if cur, ok := s.store[sessionID]; ok && cur.expired(s.now()) {
			delete(s.store, sessionID)
		}
		s.mu.Unlock()
		return nil, repository.ErrCartNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (s *CartStore) Save(_ context.Context, sessionID string, data []byte, ttl time.Duration) error {
	e := entry{data: make([]byte, len(data))}
	copy(e.data, data)
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[sessionID] = e
	return nil
}

func (s *CartStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, sessionID)
	return nil
}

// PurgeExpired drops every snapshot whose TTL has passed.
func (s *CartStore) PurgeExpired(_ context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.store {
		if e.expired(now) {
			delete(s.store, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many snapshots are held, expired or not.
func (s *CartStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}
