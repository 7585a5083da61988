package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apicontext "github.com/dtroode/knowledgebase-server/internal/api/http/context"
	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// SessionService defines the token lifecycle operations.
type SessionService interface {
	Login(ctx context.Context, username, password string) (model.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string)
	LogoutAll(ctx context.Context, user model.User, accessToken string) (int64, error)
}

// UserService defines account registration.
type UserService interface {
	Register(ctx context.Context, username, fullName, password string) (model.User, error)
}

// ContextManager is implemented by apicontext.Manager.
type ContextManager interface {
	model.ContextManager
	GetTokenFromContext(ctx context.Context) (string, bool)
}

type registerRequest struct {
	Username string `json:"username" form:"username"`
	FullName string `json:"full_name" form:"full_name"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token" form:"access_token"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type logoutAllResponse struct {
	Message              string `json:"message"`
	RevokedRefreshTokens int64  `json:"revoked_refresh_tokens"`
}

// Auth handles the /auth endpoints.
type Auth struct {
	session        SessionService
	users          UserService
	contextManager ContextManager
	logger         *logger.Logger
}

func NewAuth(session SessionService, users UserService, contextManager ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		session:        session,
		users:          users,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (h *Auth) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logger.FromContext(ctx, h.logger)

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("Auth handler: bad register body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.users.Register(ctx, req.Username, req.FullName, req.Password)
	if err != nil {
		l.Info("Auth handler: register failed", "username", req.Username, "error", err)
		return HandleError(c, err)
	}

	return c.JSON(http.StatusCreated, user)
}

// Login accepts JSON or form encoded credentials.
func (h *Auth) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logger.FromContext(ctx, h.logger)

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("Auth handler: bad login body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.session.Login(ctx, req.Username, req.Password)
	if err != nil {
		l.Info("Auth handler: login failed", "username", req.Username, "error", err)
		return HandleError(c, err)
	}

	return c.JSON(http.StatusOK, pair)
}

// Refresh takes the previous access token from the body, or from the
// Authorization header when the body omits it.
func (h *Auth) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logger.FromContext(ctx, h.logger)

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("Auth handler: bad refresh body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.AccessToken == "" {
		req.AccessToken, _ = apicontext.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	}

	pair, err := h.session.Refresh(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		l.Info("Auth handler: refresh failed", "error", err)
		return HandleError(c, err)
	}

	return c.JSON(http.StatusOK, pair)
}

// Logout always answers 200 for an authenticated caller.
func (h *Auth) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		logger.FromContext(ctx, h.logger).Debug("Auth handler: logout body ignored", "error", err)
	}

	token, _ := h.contextManager.GetTokenFromContext(ctx)
	h.session.Logout(ctx, token, req.RefreshToken)

	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

func (h *Auth) LogoutAll(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.currentUser(ctx)
	if err != nil {
		return HandleError(c, err)
	}
	token, _ := h.contextManager.GetTokenFromContext(ctx)

	n, err := h.session.LogoutAll(ctx, user, token)
	if err != nil {
		logger.FromContext(ctx, h.logger).Error("Auth handler: logout-all failed", "user_id", user.ID, "error", err)
		return HandleError(c, err)
	}

	return c.JSON(http.StatusOK, logoutAllResponse{Message: "logged out everywhere", RevokedRefreshTokens: n})
}

func (h *Auth) Me(c echo.Context) error {
	user, err := h.currentUser(c.Request().Context())
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Auth) currentUser(ctx context.Context) (model.User, error) {
	user, ok := h.contextManager.GetUserFromContext(ctx)
	if !ok {
		return model.User{}, errors.New("no authenticated user in context")
	}
	return user, nil
}
