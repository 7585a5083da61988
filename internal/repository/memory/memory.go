// Package memory keeps the auth stores in process memory. It backs
// DATABASE_DRIVER=memory and the service tests, and mirrors the postgres
// semantics: expiry is exclusive, duplicate values conflict, refresh tokens
// are kept as digests only.
package memory

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.Pinger = (*DB)(nil)

// DB holds every table behind one lock so the refresh token foreign key can
// be checked atomically with the insert.
type DB struct {
	mu  sync.RWMutex
	now func() time.Time

	users     map[uuid.UUID]model.User
	usernames map[string]uuid.UUID
	refresh   map[string]model.RefreshToken
	blacklist map[string]model.RevocationEntry
}

// New creates an empty DB. A nil clock means time.Now.
func New(now func() time.Time) *DB {
	if now == nil {
		now = time.Now
	}
	return &DB{
		now:       now,
		users:     make(map[uuid.UUID]model.User),
		usernames: make(map[string]uuid.UUID),
		refresh:   make(map[string]model.RefreshToken),
		blacklist: make(map[string]model.RevocationEntry),
	}
}

// Ping only fails for a finished context.
func (d *DB) Ping(ctx context.Context) error {
	return checkContext(ctx)
}

// Users returns the user table.
func (d *DB) Users() *UserRepository { return &UserRepository{db: d} }

// RefreshTokens returns the refresh token table.
func (d *DB) RefreshTokens() *RefreshTokenRepository { return &RefreshTokenRepository{db: d} }

// Revocations returns the token blacklist table.
func (d *DB) Revocations() *RevocationRepository { return &RevocationRepository{db: d} }

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}
	return nil
}

func digestKey(token string) string {
	return hex.EncodeToString(model.HashRefreshToken(token))
}
