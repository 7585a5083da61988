package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/knowledgebase-server/internal/model"
)

// Error response messages. Credential failures share one message per
// endpoint so the response never says which check failed.
const (
	msgInvalidCredentials  = "invalid username or password"
	msgInvalidRefreshToken = "invalid refresh token"
	msgUnauthenticated     = "could not validate credentials"
	msgForbidden           = "not enough permissions"
	msgUnavailable         = "service unavailable"
	msgInternal            = "internal server error"
)

// HandleError converts a service error into an echo HTTP error. It is the
// only place where error kinds become status codes.
func HandleError(c echo.Context, err error) error {
	code, msg := statusFor(err)
	if code == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	// checked before ErrInvalidToken, which it may wrap
	case errors.Is(err, model.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, msgInvalidRefreshToken
	case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, model.ErrInvalidToken):
		return http.StatusUnauthorized, msgUnauthenticated
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "already exists"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// validationMessage exposes the validation detail, which never contains
// stored data, only what was wrong with the request.
func validationMessage(err error) string {
	return err.Error()
}
