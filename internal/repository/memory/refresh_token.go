package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db *DB
}

func (r *RefreshTokenRepository) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (model.RefreshToken, error) {
	if token == "" {
		return model.RefreshToken{}, fmt.Errorf("%w: empty refresh token", model.ErrValidation)
	}
	if err := checkContext(ctx); err != nil {
		return model.RefreshToken{}, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now().UTC()
	if !expiresAt.After(now) {
		return model.RefreshToken{}, fmt.Errorf("%w: refresh token expiry must be in the future", model.ErrValidation)
	}
	if _, ok := r.db.users[userID]; !ok {
		return model.RefreshToken{}, fmt.Errorf("%w: user %s does not exist", model.ErrValidation, userID)
	}

	key := digestKey(token)
	if _, dup := r.db.refresh[key]; dup {
		return model.RefreshToken{}, fmt.Errorf("refresh token: %w", model.ErrConflict)
	}

	rt := model.RefreshToken{
		ID:        uuid.New(),
		TokenHash: model.HashRefreshToken(token),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
	}
	r.db.refresh[key] = rt

	return rt, nil
}

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	if token == "" {
		return model.RefreshToken{}, fmt.Errorf("%w: empty refresh token", model.ErrValidation)
	}
	if err := checkContext(ctx); err != nil {
		return model.RefreshToken{}, err
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rt, ok := r.db.refresh[digestKey(token)]
	if !ok || rt.Expired(r.db.now()) {
		return model.RefreshToken{}, fmt.Errorf("refresh token: %w", model.ErrNotFound)
	}
	return rt, nil
}

func (r *RefreshTokenRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("%w: empty refresh token", model.ErrValidation)
	}
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := digestKey(token)
	if _, ok := r.db.refresh[key]; !ok {
		return false, nil
	}
	delete(r.db.refresh, key)
	return true, nil
}

func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for key, rt := range r.db.refresh {
		if rt.UserID == userID {
			delete(r.db.refresh, key)
			n++
		}
	}
	return n, nil
}

func (r *RefreshTokenRepository) SweepExpired(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	var n int64
	for key, rt := range r.db.refresh {
		if rt.Expired(now) {
			delete(r.db.refresh, key)
			n++
		}
	}
	return n, nil
}
