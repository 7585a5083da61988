package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db  *Connection
	now Clock
}

func NewUserRepository(db *Connection, now Clock) *UserRepository {
	return &UserRepository{
		db:  db,
		now: now.orNow(),
	}
}

const userColumns = `id, username, full_name, password_hash, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Username, &user.FullName, &user.PasswordHash, &user.IsAdmin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	if strings.TrimSpace(username) == "" {
		return model.User{}, fmt.Errorf("%w: empty username", model.ErrValidation)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by username: %w", classify(err))
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by id: %w", classify(err))
	}

	return user, nil
}

// Create inserts user. A zero ID is replaced with a new one; a taken
// username is model.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return model.User{}, fmt.Errorf("%w: username and password hash are required", model.ErrValidation)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.now().UTC()

	query := `INSERT INTO users (id, username, full_name, password_hash, is_admin, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $6)
			  RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Username, user.FullName, user.PasswordHash, user.IsAdmin, now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("username %q is taken: %w", user.Username, classify(err))
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", classify(err))
	}

	return saved, nil
}
