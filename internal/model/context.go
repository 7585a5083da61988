package model

import (
	"context"
)

// ContextManager stores the authenticated user on a request context.
type ContextManager interface {
	SetUserToContext(ctx context.Context, user User) context.Context
	GetUserFromContext(ctx context.Context) (User, bool)
}
