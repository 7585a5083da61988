package model

import "errors"

// Store and codec level error kinds. Callers test them with errors.Is.
var (
	// ErrValidation marks malformed input: empty token, empty username, expiry in the past.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an absent user, token or blacklist entry.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate insert of a unique value.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks a store that could not be reached or timed out.
	ErrUnavailable = errors.New("service unavailable")
	// ErrConfiguration marks missing or unusable key material.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidToken is returned by the token codec for any token it refuses.
	ErrInvalidToken = errors.New("invalid token")
)

// Session level outcomes the transport layer translates to responses.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
)
