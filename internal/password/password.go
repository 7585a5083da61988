// Package password hashes and verifies user credentials with bcrypt.
//
// bcrypt is CPU bound, so every call takes a slot from a weighted semaphore
// and at most Workers computations run at the same time.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

var _ model.PasswordHasher = (*Hasher)(nil)

// Hasher is a bcrypt backed credential hasher.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher creates a Hasher. A cost outside bcrypt limits falls back to
// bcrypt.DefaultCost, workers <= 0 means GOMAXPROCS.
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(workers)),
	}
}

// Hash returns a salted bcrypt hash of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty password", model.ErrValidation)
	}

	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", model.ErrValidation)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash is a
// mismatch, not an error; only context cancellation is returned as error.
func (h *Hasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

func (h *Hasher) acquire(ctx context.Context) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: hasher busy: %w", model.ErrUnavailable, err)
	}
	return nil
}

// ValidatePassword enforces the minimum length policy. Length is counted in
// characters, not bytes.
func ValidatePassword(password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minLength)
	}
	return nil
}
