package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aoluwar/Sentiment-Analysis/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status":  "ok",
		"uptime":  uptime,
		"version": version.Get(),
	})
}

// handleReadiness checks the one external dependency: the analysis backend.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx := c.Request().Context()

	report, err := s.analysis.Health(ctx)
	if err != nil {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "backend",
			"error":        err.Error(),
		})
	}

	return c.JSON(200, map[string]any{
		"status":  "ready",
		"backend": report.Status,
	})
}
