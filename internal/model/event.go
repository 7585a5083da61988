package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionEventType names a session lifecycle transition.
type SessionEventType string

const (
	EventLogin       SessionEventType = "login"
	EventLoginFailed SessionEventType = "login_failed"
	EventRefresh     SessionEventType = "refresh"
	EventLogout      SessionEventType = "logout"
	EventLogoutAll   SessionEventType = "logout_all"
)

// SessionEvent is published after a session transition. It never carries
// token material.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	UserID     uuid.UUID        `json:"user_id,omitempty"`
	Username   string           `json:"username,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventPublisher delivers session events to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, event SessionEvent) error
}
