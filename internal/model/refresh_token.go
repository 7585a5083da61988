package model

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists opaque refresh tokens.
//
// A token whose ExpiresAt is not after the store clock is reported as
// ErrNotFound by GetByToken even while the row still exists.
type RefreshTokenStore interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (RefreshToken, error)
	GetByToken(ctx context.Context, token string) (RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// RefreshToken is a persisted refresh token row. Only the SHA-256 digest of
// the token string is stored.
type RefreshToken struct {
	ID        uuid.UUID
	TokenHash []byte
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// HashRefreshToken returns the digest under which a refresh token is stored.
func HashRefreshToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
