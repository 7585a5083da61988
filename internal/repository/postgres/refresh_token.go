package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

// RefreshTokenRepository keeps refresh tokens as SHA-256 digests. Reads treat
// rows with expires_at <= now as absent.
type RefreshTokenRepository struct {
	db  *Connection
	now Clock
}

func NewRefreshTokenRepository(db *Connection, now Clock) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		db:  db,
		now: now.orNow(),
	}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (model.RefreshToken, error) {
	now := r.now().UTC()
	switch {
	case token == "":
		return model.RefreshToken{}, fmt.Errorf("%w: empty refresh token", model.ErrValidation)
	case userID == uuid.Nil:
		return model.RefreshToken{}, fmt.Errorf("%w: empty user id", model.ErrValidation)
	case !expiresAt.After(now):
		return model.RefreshToken{}, fmt.Errorf("%w: refresh token expiry must be in the future", model.ErrValidation)
	}

	const query = `
        INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, token_hash, user_id, expires_at, created_at
    `

	var rt model.RefreshToken
	err := r.db.QueryRow(ctx, query,
		uuid.New(), model.HashRefreshToken(token), userID, expiresAt.UTC(), now,
	).Scan(&rt.ID, &rt.TokenHash, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to create refresh token: %w", classify(err))
	}

	return rt, nil
}

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	if token == "" {
		return model.RefreshToken{}, fmt.Errorf("%w: empty refresh token", model.ErrValidation)
	}

	const query = `
        SELECT id, token_hash, user_id, expires_at, created_at
        FROM refresh_tokens WHERE token_hash = $1 AND expires_at > $2
    `

	var rt model.RefreshToken
	err := r.db.QueryRow(ctx, query, model.HashRefreshToken(token), r.now().UTC()).Scan(
		&rt.ID, &rt.TokenHash, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt,
	)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token: %w", classify(err))
	}

	return rt, nil
}

// DeleteByToken removes the row regardless of expiry and reports whether one
// existed.
func (r *RefreshTokenRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("%w: empty refresh token", model.ErrValidation)
	}

	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`

	tag, err := r.db.Exec(ctx, query, model.HashRefreshToken(token))
	if err != nil {
		return false, fmt.Errorf("failed to delete refresh token: %w", classify(err))
	}

	return tag.RowsAffected() > 0, nil
}

func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`

	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens by user: %w", classify(err))
	}

	return tag.RowsAffected(), nil
}

func (r *RefreshTokenRepository) SweepExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	tag, err := r.db.Exec(ctx, query, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep refresh tokens: %w", classify(err))
	}

	return tag.RowsAffected(), nil
}
