package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())

		body, err := fs.ReadFile(migrations, "migrations/"+e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", e.Name())
		assert.Contains(t, string(body), "-- +goose Down", e.Name())
	}

	assert.Equal(t, []string{
		"00001_users.sql",
		"00002_refresh_tokens.sql",
		"00003_token_blacklist.sql",
	}, names)
}

func TestMigrations_Constraints(t *testing.T) {
	body, err := fs.ReadFile(migrations, "migrations/00002_refresh_tokens.sql")
	require.NoError(t, err)
	sql := string(body)
	assert.True(t, strings.Contains(sql, "ON DELETE CASCADE"))
	assert.True(t, strings.Contains(sql, "UNIQUE (token_hash)"))

	body, err = fs.ReadFile(migrations, "migrations/00003_token_blacklist.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "UNIQUE (jti)")
	assert.Contains(t, string(body), "idx_token_blacklist_expires_at")
}
