package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.RevocationStore = (*Blacklist)(nil)

// Blacklist is the revocation store callers see. When disabled it reports
// success for Add and false for IsRevoked without touching storage.
type Blacklist struct {
	store   model.RevocationStore
	enabled bool
	logger  *logger.Logger
}

func NewBlacklist(store model.RevocationStore, enabled bool, logger *logger.Logger) *Blacklist {
	return &Blacklist{
		store:   store,
		enabled: enabled,
		logger:  logger,
	}
}

// Enabled reports whether revocations are persisted.
func (b *Blacklist) Enabled() bool {
	return b.enabled
}

func (b *Blacklist) Add(ctx context.Context, jti string, expiresAt time.Time) (model.RevocationEntry, bool, error) {
	if !b.enabled {
		return model.RevocationEntry{JTI: jti, ExpiresAt: expiresAt}, true, nil
	}
	if jti == "" {
		return model.RevocationEntry{}, false, fmt.Errorf("%w: empty jti", model.ErrValidation)
	}
	if expiresAt.IsZero() {
		return model.RevocationEntry{}, false, fmt.Errorf("%w: blacklist entry needs an expiry", model.ErrValidation)
	}

	entry, created, err := b.store.Add(ctx, jti, expiresAt)
	if err != nil {
		return model.RevocationEntry{}, false, fmt.Errorf("failed to blacklist token: %w", err)
	}

	if created {
		b.logger.Debug("Blacklist: token revoked", "jti", jti, "expires_at", expiresAt)
	} else {
		b.logger.Debug("Blacklist: token already revoked", "jti", jti)
	}

	return entry, created, nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !b.enabled {
		return false, nil
	}
	if jti == "" {
		return false, fmt.Errorf("%w: empty jti", model.ErrValidation)
	}

	revoked, err := b.store.IsRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return revoked, nil
}

func (b *Blacklist) SweepExpired(ctx context.Context) (int64, error) {
	if !b.enabled {
		return 0, nil
	}

	n, err := b.store.SweepExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep blacklist: %w", err)
	}
	return n, nil
}
