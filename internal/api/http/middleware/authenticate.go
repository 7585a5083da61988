package middleware

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	apicontext "github.com/dtroode/knowledgebase-server/internal/api/http/context"
	"github.com/dtroode/knowledgebase-server/internal/api/http/handler"
	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// IdentityResolver turns a bearer token into a user.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (model.User, error)
	RequireAdmin(user model.User) error
}

// ContextManager is implemented by apicontext.Manager.
type ContextManager interface {
	model.ContextManager
	SetTokenToContext(ctx context.Context, token string) context.Context
}

// Authenticate resolves the bearer token and stores the user and the token
// on the request context.
type Authenticate struct {
	resolver       IdentityResolver
	contextManager ContextManager
	logger         *logger.Logger
}

func NewAuthenticate(resolver IdentityResolver, contextManager ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{resolver: resolver, contextManager: contextManager, logger: logger}
}

func (m *Authenticate) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()

		token, ok := apicontext.BearerToken(req.Header.Get(echo.HeaderAuthorization))
		if !ok {
			return handler.HandleError(c, fmt.Errorf("%w: missing bearer token", model.ErrUnauthenticated))
		}

		user, err := m.resolver.ResolveIdentity(ctx, token)
		if err != nil {
			logger.FromContext(ctx, m.logger).Debug("Authenticate: request rejected", "error", err)
			return handler.HandleError(c, err)
		}

		ctx = m.contextManager.SetUserToContext(ctx, user)
		ctx = m.contextManager.SetTokenToContext(ctx, token)
		c.SetRequest(req.WithContext(ctx))

		return next(c)
	}
}

// RequireAdmin must run after Authenticate.
func (m *Authenticate) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		user, ok := m.contextManager.GetUserFromContext(ctx)
		if !ok {
			return handler.HandleError(c, model.ErrUnauthenticated)
		}
		if err := m.resolver.RequireAdmin(user); err != nil {
			logger.FromContext(ctx, m.logger).Info("Authenticate: admin route refused", "user_id", user.ID)
			return handler.HandleError(c, err)
		}

		return next(c)
	}
}
