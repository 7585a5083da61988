// Package postgres implements the auth stores on PostgreSQL with pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtroode/knowledgebase-server/database"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// PgxPool is the part of *pgxpool.Pool the repositories use. pgxmock.PgxPoolIface
// satisfies it too.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

var _ model.Pinger = (*Connection)(nil)

// Connection is a migrated connection pool.
type Connection struct {
	PgxPool
}

// Clock returns the current time. Repositories compare expiry against it.
type Clock func() time.Time

func (c Clock) orNow() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// NewConnection opens a pool for dsn and applies pending migrations.
func NewConnection(ctx context.Context, dsn string) (*Connection, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse postgres dsn: %w", model.ErrConfiguration, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", classify(err))
	}

	if err := database.Migrate(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Connection{PgxPool: pool}, nil
}

// NewConnectionWithPool wraps an existing pool without migrating.
func NewConnectionWithPool(pool PgxPool) *Connection {
	return &Connection{PgxPool: pool}
}

func (c *Connection) Close() error {
	if c.PgxPool != nil {
		c.PgxPool.Close()
	}
	return nil
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.PgxPool == nil {
		return fmt.Errorf("%w: connection pool is nil", model.ErrUnavailable)
	}
	if err := c.PgxPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", classify(err))
	}
	return nil
}
