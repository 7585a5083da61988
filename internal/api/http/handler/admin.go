package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/service"
)

// Sweeper purges expired refresh tokens and blacklist entries.
type Sweeper interface {
	SweepOnce(ctx context.Context) (service.SweepResult, error)
}

// Admin handles the /admin endpoints.
type Admin struct {
	sweeper Sweeper
	logger  *logger.Logger
}

func NewAdmin(sweeper Sweeper, logger *logger.Logger) *Admin {
	return &Admin{sweeper: sweeper, logger: logger}
}

func (h *Admin) Sweep(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.sweeper.SweepOnce(ctx)
	if err != nil {
		logger.FromContext(ctx, h.logger).Error("Admin handler: sweep failed", "error", err)
		return HandleError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}
