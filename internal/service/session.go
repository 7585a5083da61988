package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 32

// dummyPassword is hashed once and verified against when a login names an
// unknown user, so both failure paths cost one bcrypt comparison.
const dummyPassword = "knowledge-base-timing-equalizer"

// SessionConfig holds token lifetimes and the clock.
type SessionConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Now             func() time.Time
}

// Session issues, rotates and revokes token pairs.
type Session struct {
	users     model.UserStore
	refresh   model.RefreshTokenStore
	blacklist model.RevocationStore
	codec     model.TokenCodec
	hasher    model.PasswordHasher
	events    model.EventPublisher
	cfg       SessionConfig
	logger    *logger.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

func NewSession(
	users model.UserStore,
	refresh model.RefreshTokenStore,
	blacklist model.RevocationStore,
	codec model.TokenCodec,
	hasher model.PasswordHasher,
	events model.EventPublisher,
	cfg SessionConfig,
	logger *logger.Logger,
) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		users:     users,
		refresh:   refresh,
		blacklist: blacklist,
		codec:     codec,
		hasher:    hasher,
		events:    events,
		cfg:       cfg,
		logger:    logger,
	}
}

// Login checks credentials and issues a new token pair. Unknown users and
// wrong passwords both yield model.ErrInvalidCredentials.
func (s *Session) Login(ctx context.Context, username, password string) (model.TokenPair, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return model.TokenPair{}, fmt.Errorf("%w: username and password are required", model.ErrValidation)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Error("Session: failed to load user", "username", username, "error", err)
			return model.TokenPair{}, fmt.Errorf("failed to get user by username: %w", err)
		}
		if err := s.burnVerify(ctx, password); err != nil {
			return model.TokenPair{}, err
		}
		s.logger.Info("Session: login rejected", "username", username, "reason", "unknown user")
		s.publish(ctx, model.EventLoginFailed, model.User{Username: username})
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.logger.Info("Session: login rejected", "username", username, "reason", "password mismatch")
		s.publish(ctx, model.EventLoginFailed, user)
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return model.TokenPair{}, err
	}

	s.logger.Info("Session: login succeeded", "user_id", user.ID, "username", user.Username)
	s.publish(ctx, model.EventLogin, user)

	return pair, nil
}

// Refresh rotates both tokens. The previous access token is blacklisted
// before the new pair is created; if that fails no pair is issued.
func (s *Session) Refresh(ctx context.Context, accessToken, refreshToken string) (model.TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return model.TokenPair{}, fmt.Errorf("%w: access and refresh tokens are required", model.ErrValidation)
	}

	stored, err := s.refresh.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation) {
			return model.TokenPair{}, model.ErrInvalidRefreshToken
		}
		return model.TokenPair{}, fmt.Errorf("failed to get refresh token: %w", err)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenPair{}, model.ErrInvalidRefreshToken
		}
		return model.TokenPair{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	claims, err := s.codec.VerifyIgnoringExpiry(accessToken)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%w: previous access token: %w", model.ErrInvalidRefreshToken, err)
	}
	old, err := model.ParseAccessClaims(claims)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%w: previous access token: %w", model.ErrInvalidRefreshToken, err)
	}

	if stored.UserID != old.Subject {
		s.logger.Warn("Session: refresh with foreign access token",
			"user_id", stored.UserID,
			"access_subject", old.Subject)
		return model.TokenPair{}, model.ErrInvalidRefreshToken
	}

	if err := s.revoke(ctx, old); err != nil {
		s.logger.Error("Session: refresh aborted, previous access token not revoked",
			"user_id", user.ID,
			"jti", old.TokenID,
			"error", err)
		return model.TokenPair{}, fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return model.TokenPair{}, err
	}

	deleted, err := s.refresh.DeleteByToken(ctx, refreshToken)
	if err != nil || !deleted {
		s.discard(ctx, pair.RefreshToken)
		if err != nil {
			return model.TokenPair{}, fmt.Errorf("failed to delete previous refresh token: %w", err)
		}
		s.logger.Warn("Session: refresh token already rotated by a concurrent request", "user_id", user.ID)
		return model.TokenPair{}, model.ErrInvalidRefreshToken
	}

	s.logger.Info("Session: tokens rotated", "user_id", user.ID, "revoked_jti", old.TokenID)
	s.publish(ctx, model.EventRefresh, user)

	return pair, nil
}

// Logout revokes accessToken and deletes refreshToken when it belongs to the
// same user. Both steps are best effort: failures are logged and never
// reported to the caller.
func (s *Session) Logout(ctx context.Context, accessToken, refreshToken string) {
	var user model.User

	if accessToken != "" {
		if claims, err := s.codec.VerifyIgnoringExpiry(accessToken); err != nil {
			s.logger.Debug("Session: logout with unusable access token", "error", err)
		} else if ac, err := model.ParseAccessClaims(claims); err != nil {
			s.logger.Debug("Session: logout with unusable access token", "error", err)
		} else {
			user = model.User{ID: ac.Subject, Username: ac.Username}
			if err := s.revoke(ctx, ac); err != nil {
				s.logger.Error("Session: failed to revoke access token on logout", "jti", ac.TokenID, "error", err)
			}
		}
	}

	if refreshToken != "" {
		s.dropOwnRefreshToken(ctx, user, refreshToken)
	}

	s.logger.Info("Session: logged out", "user_id", user.ID)
	s.publish(ctx, model.EventLogout, user)
}

// LogoutAll deletes every refresh token of user and revokes the presented
// access token. Unlike Logout, failing to delete the refresh tokens is an
// error since the caller asked for every session to end.
func (s *Session) LogoutAll(ctx context.Context, user model.User, accessToken string) (int64, error) {
	n, err := s.refresh.DeleteByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", err)
	}

	if accessToken != "" {
		claims, err := s.codec.VerifyIgnoringExpiry(accessToken)
		if err == nil {
			var ac model.AccessClaims
			if ac, err = model.ParseAccessClaims(claims); err == nil {
				err = s.revoke(ctx, ac)
			}
		}
		if err != nil {
			s.logger.Error("Session: failed to revoke access token on logout-all", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info("Session: all sessions ended", "user_id", user.ID, "refresh_tokens", n)
	s.publish(ctx, model.EventLogoutAll, user)

	return n, nil
}

func (s *Session) issue(ctx context.Context, user model.User) (model.TokenPair, error) {
	access, err := s.codec.Sign(model.ClaimsForUser(user), s.cfg.AccessTokenTTL)
	if err != nil {
		s.logger.Error("Session: failed to sign access token", "user_id", user.ID, "error", err)
		return model.TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return model.TokenPair{}, err
	}

	if _, err := s.refresh.Create(ctx, user.ID, refresh, s.cfg.Now().Add(s.cfg.RefreshTokenTTL)); err != nil {
		s.logger.Error("Session: failed to store refresh token", "user_id", user.ID, "error", err)
		return model.TokenPair{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    model.TokenType,
	}, nil
}

// revoke blacklists a token that has not expired yet. Expired tokens are
// already unusable and are skipped.
func (s *Session) revoke(ctx context.Context, ac model.AccessClaims) error {
	if !ac.ExpiresAt.After(s.cfg.Now()) {
		return nil
	}
	_, _, err := s.blacklist.Add(ctx, ac.TokenID, ac.ExpiresAt)
	return err
}

// discard removes a refresh token created by a rotation that did not finish.
func (s *Session) discard(ctx context.Context, token string) {
	if _, err := s.refresh.DeleteByToken(ctx, token); err != nil {
		s.logger.Error("Session: failed to discard unused refresh token", "error", err)
	}
}

// dropOwnRefreshToken deletes token only when it was issued to user. A
// caller without an identified access token cannot delete anything.
func (s *Session) dropOwnRefreshToken(ctx context.Context, user model.User, token string) {
	stored, err := s.refresh.GetByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrValidation) {
			s.logger.Error("Session: failed to load refresh token on logout", "user_id", user.ID, "error", err)
		}
		return
	}
	if user.ID == uuid.Nil || stored.UserID != user.ID {
		s.logger.Warn("Session: logout with a refresh token of another user", "user_id", user.ID, "owner_id", stored.UserID)
		return
	}

	if _, err := s.refresh.DeleteByToken(ctx, token); err != nil {
		s.logger.Error("Session: failed to delete refresh token on logout", "user_id", user.ID, "error", err)
	}
}

// burnVerify spends one bcrypt comparison on the dummy hash. The hash is
// built on first use without the request deadline, and a failed build is
// retried by the next caller instead of being remembered.
func (s *Session) burnVerify(ctx context.Context, password string) error {
	hash, err := s.timingHash(ctx)
	if err != nil {
		return err
	}

	if _, err := s.hasher.Verify(ctx, password, hash); err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	return nil
}

func (s *Session) timingHash(ctx context.Context) (string, error) {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash != "" {
		return s.dummyHash, nil
	}

	hash, err := s.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
	if err != nil {
		s.logger.Warn("Session: failed to prepare timing hash", "error", err)
		return "", fmt.Errorf("failed to prepare timing hash: %w", err)
	}
	s.dummyHash = hash
	return hash, nil
}

func (s *Session) publish(ctx context.Context, typ model.SessionEventType, user model.User) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, model.SessionEvent{
		Type:       typ,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: s.cfg.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("Session: failed to publish event", "type", typ, "error", err)
	}
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
