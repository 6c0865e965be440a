package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pdittrich/fandial/internal/platform/version"
)

func (s *Server) handleHealth(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}

func (s *Server) handleSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": s.sessions.SessionCount(),
	})
}
