package repository

import (
	"context"
	"time"
)

// EventRepository persists the device lifecycle audit trail.
type EventRepository interface {
	Store(ctx context.Context, event Event) error

	// FindBySessionID returns a session's events, oldest first.
	FindBySessionID(ctx context.Context, sessionID string) ([]Event, error)

	// FindRecent returns the newest events, optionally filtered by type.
	FindRecent(ctx context.Context, eventType string, limit int) ([]Event, error)

	// DeleteOldEvents removes events created before beforeTime.
	DeleteOldEvents(ctx context.Context, beforeTime time.Time) (int64, error)

	// GetEventStats counts stored events per type.
	GetEventStats(ctx context.Context) (map[string]int64, error)
}

// Event is one recorded lifecycle transition.
type Event struct {
	ID        string         `json:"id"`
	EventType string         `json:"eventType"`
	SessionID string         `json:"sessionId"`
	Username  string         `json:"username,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
