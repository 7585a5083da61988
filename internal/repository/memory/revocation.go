package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.RevocationStore = (*RevocationRepository)(nil)

type RevocationRepository struct {
	db *DB
}

func (r *RevocationRepository) Add(ctx context.Context, jti string, expiresAt time.Time) (model.RevocationEntry, bool, error) {
	if jti == "" {
		return model.RevocationEntry{}, false, fmt.Errorf("%w: empty jti", model.ErrValidation)
	}
	if err := checkContext(ctx); err != nil {
		return model.RevocationEntry{}, false, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if e, ok := r.db.blacklist[jti]; ok {
		return e, false, nil
	}

	e := model.RevocationEntry{
		ID:        uuid.New(),
		JTI:       jti,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.db.now().UTC(),
	}
	r.db.blacklist[jti] = e

	return e, true, nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, fmt.Errorf("%w: empty jti", model.ErrValidation)
	}
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.blacklist[jti]
	return ok && e.ExpiresAt.After(r.db.now()), nil
}

func (r *RevocationRepository) SweepExpired(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	var n int64
	for jti, e := range r.db.blacklist {
		if !e.ExpiresAt.After(now) {
			delete(r.db.blacklist, jti)
			n++
		}
	}
	return n, nil
}
