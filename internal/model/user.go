package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines the user lookups the auth core needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, user User) (User, error)
}

// User represents a stored account. PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WithPasswordHash returns a copy of u carrying the given hash.
func (u User) WithPasswordHash(hash string) User {
	u.PasswordHash = hash
	return u
}
