package services

import (
	"context"
	"time"
)

// Event types published after successful user mutations.
const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
)

// UserEvent is the payload published for each user mutation.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     uint      `json:"userId"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher delivers events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, payload any) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, any) error { return nil }
