package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// Resolver turns a bearer token into the user it was issued to.
type Resolver struct {
	codec     model.TokenCodec
	blacklist model.RevocationStore
	users     model.UserStore
	logger    *logger.Logger
}

func NewResolver(codec model.TokenCodec, blacklist model.RevocationStore, users model.UserStore, logger *logger.Logger) *Resolver {
	return &Resolver{
		codec:     codec,
		blacklist: blacklist,
		users:     users,
		logger:    logger,
	}
}

// ResolveIdentity returns model.ErrUnauthenticated for bad, expired or
// revoked tokens and for tokens of deleted accounts. Store failures are
// reported as model.ErrUnavailable.
func (r *Resolver) ResolveIdentity(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, model.ErrUnauthenticated
	}

	claims, err := r.codec.Verify(token)
	if err != nil {
		r.logger.Debug("Resolver: token rejected", "error", err)
		return model.User{}, fmt.Errorf("%w: %w", model.ErrUnauthenticated, err)
	}

	ac, err := model.ParseAccessClaims(claims)
	if err != nil {
		r.logger.Debug("Resolver: token rejected", "error", err)
		return model.User{}, fmt.Errorf("%w: %w", model.ErrUnauthenticated, err)
	}

	revoked, err := r.blacklist.IsRevoked(ctx, ac.TokenID)
	if err != nil {
		r.logger.Error("Resolver: failed to check blacklist", "jti", ac.TokenID, "error", err)
		return model.User{}, fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}
	if revoked {
		r.logger.Debug("Resolver: revoked token presented", "jti", ac.TokenID, "user_id", ac.Subject)
		return model.User{}, model.ErrUnauthenticated
	}

	user, err := r.users.GetByID(ctx, ac.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			r.logger.Info("Resolver: token for missing user", "user_id", ac.Subject)
			return model.User{}, model.ErrUnauthenticated
		}
		r.logger.Error("Resolver: failed to load user", "user_id", ac.Subject, "error", err)
		return model.User{}, fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}

	return user, nil
}

// RequireAdmin checks the admin flag of an already resolved user.
func (r *Resolver) RequireAdmin(user model.User) error {
	if !user.IsAdmin {
		return model.ErrForbidden
	}
	return nil
}
