package model

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TokenType is the token_type value returned with every token pair.
const TokenType = "bearer"

// Claim names used inside access tokens.
const (
	ClaimSubject  = "sub"
	ClaimTokenID  = "jti"
	ClaimExpiry   = "exp"
	ClaimUsername = "username"
	ClaimIsAdmin  = "is_admin"
)

// TokenCodec signs and verifies access tokens. It never consults the
// revocation store.
type TokenCodec interface {
	Sign(claims map[string]any, ttl time.Duration) (string, error)
	Verify(token string) (map[string]any, error)
	VerifyIgnoringExpiry(token string) (map[string]any, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// TokenPair is what login and refresh hand back to the caller.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AccessClaims is the typed view of an access token payload.
type AccessClaims struct {
	Subject   uuid.UUID
	Username  string
	IsAdmin   bool
	TokenID   string
	ExpiresAt time.Time
}

// ClaimsForUser builds the caller supplied part of an access token.
func ClaimsForUser(u User) map[string]any {
	return map[string]any{
		ClaimSubject:  u.ID.String(),
		ClaimUsername: u.Username,
		ClaimIsAdmin:  strconv.FormatBool(u.IsAdmin),
	}
}

// ParseAccessClaims converts a verified claim map into AccessClaims.
func ParseAccessClaims(claims map[string]any) (AccessClaims, error) {
	var ac AccessClaims

	sub, _ := claims[ClaimSubject].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return AccessClaims{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	ac.Subject = id

	ac.TokenID, _ = claims[ClaimTokenID].(string)
	if ac.TokenID == "" {
		return AccessClaims{}, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}

	exp, ok := numericClaim(claims[ClaimExpiry])
	if !ok {
		return AccessClaims{}, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	ac.ExpiresAt = time.Unix(exp, 0).UTC()

	ac.Username, _ = claims[ClaimUsername].(string)
	admin, _ := claims[ClaimIsAdmin].(string)
	ac.IsAdmin = admin == "true"

	return ac, nil
}

func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
