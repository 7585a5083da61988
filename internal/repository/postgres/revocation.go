package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.RevocationStore = (*RevocationRepository)(nil)

// RevocationRepository is the token_blacklist table.
type RevocationRepository struct {
	db  *Connection
	now Clock
}

func NewRevocationRepository(db *Connection, now Clock) *RevocationRepository {
	return &RevocationRepository{
		db:  db,
		now: now.orNow(),
	}
}

// Add inserts jti. When the jti is already blacklisted the stored entry is
// returned with created set to false.
func (r *RevocationRepository) Add(ctx context.Context, jti string, expiresAt time.Time) (model.RevocationEntry, bool, error) {
	if jti == "" {
		return model.RevocationEntry{}, false, fmt.Errorf("%w: empty jti", model.ErrValidation)
	}
	return r.add(ctx, jti, expiresAt, true)
}

func (r *RevocationRepository) add(ctx context.Context, jti string, expiresAt time.Time, retry bool) (model.RevocationEntry, bool, error) {
	const insert = `
        INSERT INTO token_blacklist (id, jti, expires_at, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (jti) DO NOTHING
        RETURNING id, jti, expires_at, created_at
    `

	var e model.RevocationEntry
	err := r.db.QueryRow(ctx, insert, uuid.New(), jti, expiresAt.UTC(), r.now().UTC()).Scan(
		&e.ID, &e.JTI, &e.ExpiresAt, &e.CreatedAt,
	)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.RevocationEntry{}, false, fmt.Errorf("failed to blacklist token: %w", classify(err))
	}

	const existing = `SELECT id, jti, expires_at, created_at FROM token_blacklist WHERE jti = $1`

	err = r.db.QueryRow(ctx, existing, jti).Scan(&e.ID, &e.JTI, &e.ExpiresAt, &e.CreatedAt)
	if err != nil {
		// The conflicting row was swept between the two statements.
		if errors.Is(err, pgx.ErrNoRows) && retry {
			return r.add(ctx, jti, expiresAt, false)
		}
		return model.RevocationEntry{}, false, fmt.Errorf("failed to read blacklisted token: %w", classify(err))
	}

	return e, false, nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, fmt.Errorf("%w: empty jti", model.ErrValidation)
	}

	const query = `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1 AND expires_at > $2)`

	var revoked bool
	if err := r.db.QueryRow(ctx, query, jti, r.now().UTC()).Scan(&revoked); err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", classify(err))
	}

	return revoked, nil
}

func (r *RevocationRepository) SweepExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM token_blacklist WHERE expires_at <= $1`

	tag, err := r.db.Exec(ctx, query, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep blacklist: %w", classify(err))
	}

	return tag.RowsAffected(), nil
}
