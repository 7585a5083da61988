//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/knowledgebase-server/internal/model"
	repo "github.com/dtroode/knowledgebase-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "knowledge_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/knowledge_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func connect(t *testing.T) *repo.Connection {
	t.Helper()
	conn, err := repo.NewConnection(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func createUser(t *testing.T, users *repo.UserRepository, name string) model.User {
	t.Helper()
	u, err := users.Create(context.Background(), model.User{Username: name, FullName: name, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	users := repo.NewUserRepository(connect(t), nil)

	alice := createUser(t, users, "alice-"+uuid.NewString()[:8])

	byName, err := users.GetByUsername(ctx, alice.Username)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byID, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, byID.Username)

	_, err = users.Create(ctx, model.User{Username: alice.Username, PasswordHash: "hash"})
	require.ErrorIs(t, err, model.ErrConflict)

	_, err = users.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)
	clock := &movableClock{now: time.Now().UTC().Truncate(time.Second)}
	users := repo.NewUserRepository(conn, nil)
	tokens := repo.NewRefreshTokenRepository(conn, clock.Now)

	owner := createUser(t, users, "owner-"+uuid.NewString()[:8])
	base := clock.Now()

	_, err := tokens.Create(ctx, owner.ID, "tok-a", base.Add(time.Second))
	require.NoError(t, err)

	_, err = tokens.Create(ctx, owner.ID, "tok-a", base.Add(time.Hour))
	require.ErrorIs(t, err, model.ErrConflict)

	_, err = tokens.Create(ctx, uuid.New(), "tok-b", base.Add(time.Hour))
	require.ErrorIs(t, err, model.ErrValidation)

	got, err := tokens.GetByToken(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.UserID)

	clock.Set(base.Add(time.Second))
	_, err = tokens.GetByToken(ctx, "tok-a")
	require.ErrorIs(t, err, model.ErrNotFound, "expires_at == now is expired")

	n, err := tokens.SweepExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	n, err = tokens.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = tokens.Create(ctx, owner.ID, "tok-c", clock.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = tokens.Create(ctx, owner.ID, "tok-d", clock.Now().Add(time.Hour))
	require.NoError(t, err)

	deleted, err := tokens.DeleteByToken(ctx, "tok-c")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = tokens.DeleteByToken(ctx, "tok-c")
	require.NoError(t, err)
	assert.False(t, deleted)

	count, err := tokens.DeleteByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRevocations(t *testing.T) {
	ctx := context.Background()
	clock := &movableClock{now: time.Now().UTC().Truncate(time.Second)}
	blacklist := repo.NewRevocationRepository(connect(t), clock.Now)
	jti := uuid.NewString()
	expires := clock.Now().Add(time.Minute)

	first, created, err := blacklist.Add(ctx, jti, expires)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := blacklist.Add(ctx, jti, expires)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	revoked, err := blacklist.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	clock.Set(expires)
	revoked, err = blacklist.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := blacklist.SweepExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
	n, err = blacklist.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
