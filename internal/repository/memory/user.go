package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *DB
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	if err := checkContext(ctx); err != nil {
		return model.User{}, err
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	if strings.TrimSpace(username) == "" {
		return model.User{}, fmt.Errorf("%w: empty username", model.ErrValidation)
	}
	if err := checkContext(ctx); err != nil {
		return model.User{}, err
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.usernames[username]
	if !ok {
		return model.User{}, fmt.Errorf("user %q: %w", username, model.ErrNotFound)
	}
	return r.db.users[id], nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return model.User{}, fmt.Errorf("%w: username and password hash are required", model.ErrValidation)
	}
	if err := checkContext(ctx); err != nil {
		return model.User{}, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, taken := r.db.usernames[user.Username]; taken {
		return model.User{}, fmt.Errorf("username %q is taken: %w", user.Username, model.ErrConflict)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, taken := r.db.users[user.ID]; taken {
		return model.User{}, fmt.Errorf("user id %s: %w", user.ID, model.ErrConflict)
	}

	now := r.db.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.db.users[user.ID] = user
	r.db.usernames[user.Username] = user.ID

	return user, nil
}
