package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

type pingPool struct {
	PgxPool
	err    error
	closed bool
}

func (p *pingPool) Ping(context.Context) error { return p.err }
func (p *pingPool) Close()                     { p.closed = true }

func TestConnection_Ping(t *testing.T) {
	pool := &pingPool{}
	db := NewConnectionWithPool(pool)

	require.NoError(t, db.Ping(context.Background()))

	pool.err = context.DeadlineExceeded
	require.ErrorIs(t, db.Ping(context.Background()), model.ErrUnavailable)

	require.NoError(t, db.Close())
	assert.True(t, pool.closed)
}

func TestConnection_NilPool(t *testing.T) {
	c := &Connection{}
	assert.NoError(t, c.Close())
	require.ErrorIs(t, c.Ping(context.Background()), model.ErrUnavailable)
}

func TestNewConnection_BadDSN(t *testing.T) {
	_, err := NewConnection(context.Background(), "postgres://%zz")
	require.ErrorIs(t, err, model.ErrConfiguration)
}
