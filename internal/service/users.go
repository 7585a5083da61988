package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
	"github.com/dtroode/knowledgebase-server/internal/password"
)

const maxUsernameLength = 50

// Users creates accounts. Passwords are checked against the length policy
// and hashed before they reach the store.
type Users struct {
	store     model.UserStore
	hasher    model.PasswordHasher
	minLength int
	logger    *logger.Logger
}

func NewUsers(store model.UserStore, hasher model.PasswordHasher, minLength int, logger *logger.Logger) *Users {
	return &Users{
		store:     store,
		hasher:    hasher,
		minLength: minLength,
		logger:    logger,
	}
}

// Register creates a regular account. A taken username is model.ErrConflict.
func (s *Users) Register(ctx context.Context, username, fullName, pw string) (model.User, error) {
	user, err := s.create(ctx, username, fullName, pw, false)
	if err != nil {
		return model.User{}, err
	}

	s.logger.Info("Users: registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// EnsureAdmin creates the bootstrap admin unless an account with that
// username already exists. created reports whether a new row was written.
func (s *Users) EnsureAdmin(ctx context.Context, username, fullName, pw string) (user model.User, created bool, err error) {
	username = normalizeUsername(username)
	user, err = s.store.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if !user.IsAdmin {
			s.logger.Warn("Users: bootstrap admin name belongs to a regular account", "username", username)
		}
		return user, false, nil
	case !errors.Is(err, model.ErrNotFound):
		return model.User{}, false, fmt.Errorf("failed to get user by username: %w", err)
	}

	user, err = s.create(ctx, username, fullName, pw, true)
	if errors.Is(err, model.ErrConflict) {
		// another instance created it first
		user, err = s.store.GetByUsername(ctx, username)
		if err != nil {
			return model.User{}, false, fmt.Errorf("failed to get user by username: %w", err)
		}
		return user, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}

	s.logger.Info("Users: admin created", "user_id", user.ID, "username", user.Username)
	return user, true, nil
}

func (s *Users) create(ctx context.Context, username, fullName, pw string, admin bool) (model.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return model.User{}, fmt.Errorf("%w: username is required", model.ErrValidation)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return model.User{}, fmt.Errorf("%w: username must be at most %d characters", model.ErrValidation, maxUsernameLength)
	}
	if err := password.ValidatePassword(pw, s.minLength); err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(ctx, pw)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Create(ctx, model.User{
		Username: username,
		FullName: strings.TrimSpace(fullName),
		IsAdmin:  admin,
	}.WithPasswordHash(hash))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// normalizeUsername is applied before a username is stored or looked up.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
