package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RevocationStore persists revoked access token identifiers.
type RevocationStore interface {
	// Add records jti. Adding a jti that is already present returns the
	// existing entry with created set to false.
	Add(ctx context.Context, jti string, expiresAt time.Time) (entry RevocationEntry, created bool, err error)
	// IsRevoked only counts entries that have not expired yet.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// RevocationEntry is a blacklist row. ExpiresAt is copied from the revoked
// token so the row never needs to outlive it.
type RevocationEntry struct {
	ID        uuid.UUID
	JTI       string
	ExpiresAt time.Time
	CreatedAt time.Time
}
