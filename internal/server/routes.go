package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/sessions", s.handleSessions)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
