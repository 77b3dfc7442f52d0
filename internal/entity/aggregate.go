package entity

import "time"

// EventStoreRecord represents an event stored in the database.
type EventStoreRecord struct {
	ID         string    `json:"id" db:"id"`
	StreamID   string    `json:"stream_id" db:"stream_id"`
	StreamType string    `json:"stream_type" db:"stream_type"`
	Version    int       `json:"version" db:"version"`
	EventType  string    `json:"event_type" db:"event_type"`
	Payload    []byte    `json:"payload" db:"payload"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Event represents anything appended to an event stream.
type Event interface {
	EventType() string
}

// Aggregate represents a domain aggregate root.
type Aggregate interface {
	GetAggregateID() string
	GetVersion() int
}

// AggregateBase provides a basic implementation for an aggregate.
type AggregateBase struct {
	ID      string
	Version int
}

func (a *AggregateBase) GetAggregateID() string {
	return a.ID
}

func (a *AggregateBase) GetVersion() int {
	return a.Version
}

// CartStreamID returns the event stream that journals a cart session.
func CartStreamID(sessionID string) string {
	return "cart-" + sessionID
}
