package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type startMonitorRequest struct {
	TestMode bool `json:"testMode"`
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

func (s *Server) startMonitor(c echo.Context) error {
	if s.deps.Monitor == nil {
		return s.unavailable(c, "camera monitor")
	}
	var req startMonitorRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "invalid monitor request")
	}
	if err := s.deps.Monitor.Start(req.TestMode); err != nil {
		return s.fail(c, err, "failed to start monitoring")
	}
	return c.JSON(http.StatusOK, s.deps.Monitor.Session().Status(s.deps.Now()))
}

func (s *Server) stopMonitor(c echo.Context) error {
	if s.deps.Monitor == nil {
		return s.unavailable(c, "camera monitor")
	}
	s.deps.Monitor.Stop()
	return c.JSON(http.StatusOK, s.deps.Monitor.Session().Status(s.deps.Now()))
}

func (s *Server) monitorStatus(c echo.Context) error {
	if s.deps.Monitor == nil {
		return s.unavailable(c, "camera monitor")
	}
	return c.JSON(http.StatusOK, s.deps.Monitor.Session().Status(s.deps.Now()))
}

func (s *Server) monitorVisibility(c echo.Context) error {
	if s.deps.Monitor == nil {
		return s.unavailable(c, "camera monitor")
	}
	var req visibilityRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "invalid visibility")
	}
	s.deps.Monitor.Session().SetHidden(s.deps.Now(), req.Hidden)
	return c.JSON(http.StatusOK, s.deps.Monitor.Session().Status(s.deps.Now()))
}
