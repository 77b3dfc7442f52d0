package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/jmoiron/sqlx"
)

type cartStore struct {
	db *sqlx.DB
}

var _ repository.CartPurger = (*cartStore)(nil)

// NewCartStore creates a CartStore that keeps snapshots in the carts table.
func NewCartStore(db *sqlx.DB) repository.CartStore {
	return &cartStore{db: db}
}

func (s *cartStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM carts WHERE session_id = $1 AND (expires_at IS NULL OR expires_at > NOW())",
		sessionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", sessionID, err)
	}
	return data, nil
}

func (s *cartStore) Save(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().UTC().Add(ttl), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO carts (session_id, data, updated_at, expires_at) VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW(), expires_at = EXCLUDED.expires_at`,
		sessionID, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save cart %s: %w", sessionID, err)
	}
	return nil
}

func (s *cartStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("failed to delete cart %s: %w", sessionID, err)
	}
	return nil
}

// PurgeExpired removes snapshots whose TTL has passed.
func (s *cartStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE expires_at IS NOT NULL AND expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired carts: %w", err)
	}
	return res.RowsAffected()
}
