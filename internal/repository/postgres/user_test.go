package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var userCols = []string{"id", "username", "full_name", "password_hash", "is_admin", "created_at", "updated_at"}

func TestUserRepository_GetByUsername(t *testing.T) {
	db, mock := newDB(t)
	r := NewUserRepository(db, fixedClock)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`SELECT id, username, full_name, password_hash, is_admin, created_at, updated_at FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "alice", "Alice", "hash", false, fixedNow, fixedNow))

	u, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash", u.PasswordHash)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = r.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = r.GetByUsername(ctx, " ")
	require.ErrorIs(t, err, model.ErrValidation)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newDB(t)
	r := NewUserRepository(db, fixedClock)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "root", "", "hash", true, fixedNow, fixedNow))

	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(&pgconn.PgError{Code: "08006"})

	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, model.ErrUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newDB(t)
	r := NewUserRepository(db, fixedClock)
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Username: "alice", FullName: "Alice", PasswordHash: "hash"}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(user.ID, "alice", "Alice", "hash", false, fixedNow).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(user.ID, "alice", "Alice", "hash", false, fixedNow, fixedNow))

	saved, err := r.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, saved.CreatedAt)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(user.ID, "alice", "Alice", "hash", false, fixedNow).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = r.Create(ctx, user)
	require.ErrorIs(t, err, model.ErrConflict)

	_, err = r.Create(ctx, model.User{Username: "bob"})
	require.ErrorIs(t, err, model.ErrValidation)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_AssignsID(t *testing.T) {
	db, mock := newDB(t)
	r := NewUserRepository(db, fixedClock)
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "bob", "", "hash", false, fixedNow).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "bob", "", "hash", false, fixedNow, fixedNow))

	saved, err := r.Create(context.Background(), model.User{Username: "bob", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, id, saved.ID)
}
