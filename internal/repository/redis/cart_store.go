package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aayush8356/Vendora/internal/repository"
)

const keyPrefix = "cart:"

// CartStore keeps cart snapshots in Redis with a sliding TTL.
type CartStore struct {
	client redis.Cmdable
}

// NewClient creates a Redis client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewCartStore creates a CartStore on top of an existing client.
func NewCartStore(client redis.Cmdable) *CartStore {
	return &CartStore{client: client}
}

var _ repository.CartStore = (*CartStore)(nil)

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *CartStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", sessionID, err)
	}
	return data, nil
}

// Save writes the snapshot. A zero ttl keeps the key forever.
func (s *CartStore) Save(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", sessionID, err)
	}
	return nil
}

func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart %s: %w", sessionID, err)
	}
	return nil
}
