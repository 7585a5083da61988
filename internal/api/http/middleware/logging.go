package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/knowledgebase-server/internal/logger"
)

// Logging attaches a request scoped logger to the context and logs every
// completed request.
type Logging struct {
	logger *logger.Logger
}

func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

func (m *Logging) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		l := m.logger.With(
			"method", req.Method,
			"path", c.Path(),
			"remote_ip", c.RealIP(),
		)
		if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
			l = l.With("request_id", rid)
		} else if rid := req.Header.Get(echo.HeaderXRequestID); rid != "" {
			l = l.With("request_id", rid)
		}

		c.SetRequest(req.WithContext(logger.IntoContext(req.Context(), l)))

		start := time.Now()
		err := next(c)
		if err != nil {
			// write the response now so the logged status is the real one
			c.Error(err)
		}
		status := c.Response().Status
		dur := time.Since(start)

		switch {
		case status >= 500:
			l.Error("HTTP: request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", err)
		case status >= 400:
			l.Warn("HTTP: request completed", "status", status, "duration_ms", dur.Milliseconds())
		default:
			l.Info("HTTP: request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
		}

		return nil
	}
}
