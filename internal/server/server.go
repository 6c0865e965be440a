// Package server exposes a local debug endpoint: health, build info, session
// count and Prometheus metrics. It only runs when DEBUG_ADDR is set.
package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// SessionCounter reports the number of live dial sessions.
type SessionCounter interface {
	SessionCount() int
}

type Server struct {
	echo      *echo.Echo
	addr      string
	sessions  SessionCounter
	startTime time.Time
}

func New(addr string, sessions SessionCounter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(20))))

	s := &Server{
		echo:      e,
		addr:      addr,
		sessions:  sessions,
		startTime: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
