package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/knowledgebase-server/internal/model"
	"github.com/dtroode/knowledgebase-server/internal/password"
	"github.com/dtroode/knowledgebase-server/internal/repository/memory"
	"github.com/dtroode/knowledgebase-server/internal/testutil"
	"github.com/dtroode/knowledgebase-server/internal/token"
)

const (
	accessTTL  = 30 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type recorder struct {
	mu     sync.Mutex
	events []model.SessionEvent
}

func (r *recorder) Publish(_ context.Context, event model.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []model.SessionEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SessionEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	clock     *testutil.Clock
	db        *memory.DB
	codec     *token.Codec
	hasher    *password.Hasher
	blacklist *Blacklist
	events    *recorder
	session   *Session
	resolver  *Resolver
	users     *Users
}

type fixtureOption func(*fixture)

func withBlacklistStore(store model.RevocationStore) fixtureOption {
	return func(f *fixture) {
		f.blacklist = NewBlacklist(store, true, testutil.MakeNoopLogger())
	}
}

func withBlacklistDisabled() fixtureOption {
	return func(f *fixture) {
		f.blacklist = NewBlacklist(f.db.Revocations(), false, testutil.MakeNoopLogger())
	}
}

// newFixture wires the session stack on the memory store with the given
// refresh token store (nil means the memory one).
func newFixture(t *testing.T, refresh model.RefreshTokenStore, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		clock:  testutil.NewClock(),
		hasher: password.NewHasher(bcrypt.MinCost, 2),
		events: &recorder{},
	}
	f.db = memory.New(f.clock.Now)

	keys := testutil.RSAKeyPair(t)
	codec, err := token.NewCodec("RS256", keys.Private, keys.Public, token.WithClock(f.clock.Now))
	require.NoError(t, err)
	f.codec = codec

	f.blacklist = NewBlacklist(f.db.Revocations(), true, testutil.MakeNoopLogger())
	for _, opt := range opts {
		opt(f)
	}

	if refresh == nil {
		refresh = f.db.RefreshTokens()
	}

	log := testutil.MakeNoopLogger()
	f.session = NewSession(f.db.Users(), refresh, f.blacklist, f.codec, f.hasher, f.events, SessionConfig{
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		Now:             f.clock.Now,
	}, log)
	f.resolver = NewResolver(f.codec, f.blacklist, f.db.Users(), log)
	f.users = NewUsers(f.db.Users(), f.hasher, 8, log)

	return f
}

func (f *fixture) register(t *testing.T, username, pw string) model.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), username, username+" test", pw)
	require.NoError(t, err)
	return u
}

func (f *fixture) claimsOf(t *testing.T, access string) model.AccessClaims {
	t.Helper()
	claims, err := f.codec.VerifyIgnoringExpiry(access)
	require.NoError(t, err)
	ac, err := model.ParseAccessClaims(claims)
	require.NoError(t, err)
	return ac
}
