package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

const readyTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

// Health serves liveness and readiness probes.
type Health struct {
	store  model.Pinger
	logger *logger.Logger
}

func NewHealth(store model.Pinger, logger *logger.Logger) *Health {
	return &Health{store: store, logger: logger}
}

func (h *Health) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

// Ready reports 503 while the store cannot be reached.
func (h *Health) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.FromContext(ctx, h.logger).Warn("Health handler: store not ready", "error", err)
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
	}

	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}
