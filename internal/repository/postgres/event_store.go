package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type eventStore struct {
	db *sqlx.DB
}

// NewEventStore creates a new EventStore backed by Postgres.
func NewEventStore(db *sqlx.DB) repository.EventStore {
	return &eventStore{db: db}
}

func (s *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize appends per stream so concurrent writers cannot claim the same version.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", streamID); err != nil {
		return fmt.Errorf("failed to lock stream %s: %w", streamID, err)
	}

	var currentVersion int
	err = tx.GetContext(ctx, &currentVersion, "SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1", streamID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to get current stream version: %w", err)
	}

	if expectedVersion >= 0 && currentVersion != expectedVersion {
		return fmt.Errorf("%w: expected version %d, got %d", repository.ErrConcurrency, expectedVersion, currentVersion)
	}

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO events (id, stream_id, stream_type, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	version := currentVersion
	now := time.Now().UTC()

	for _, event := range events {
		version++

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}

		_, err = stmt.ExecContext(ctx, uuid.NewString(), streamID, streamType, version, event.EventType(), payload, now)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.EventType(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	var events []entity.EventStoreRecord
	err := s.db.SelectContext(ctx, &events,
		"SELECT id, stream_id, stream_type, version, event_type, payload, created_at FROM events WHERE stream_id = $1 ORDER BY version ASC",
		streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for stream %s: %w", streamID, err)
	}
	return events, nil
}
