// Package httpserver serves the eyedrop checker JSON API over echo.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/model"
	"github.com/tphakala/eyedrop-checker/internal/monitor"
	"github.com/tphakala/eyedrop-checker/internal/notification"
	"github.com/tphakala/eyedrop-checker/internal/observability"
	"github.com/tphakala/eyedrop-checker/internal/storage"
)

// Server timeouts.
const (
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 30 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
	BodyLimit       = "64K"
)

// GetLogger returns the http module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("http")
}

// TestSender sends a test notification.
type TestSender interface {
	SendTest(ctx context.Context, now time.Time) notification.DeliveryAttempt
}

// Deps are the services the API exposes. Nil services disable their routes'
// handlers with 503 responses.
type Deps struct {
	Records  *storage.Records
	Family   storage.FamilyStore
	Owner    string
	Presence *notification.Presence
	Banners  *notification.BannerBoard
	Surface  *notification.LocalSurface
	Tester   TestSender
	Monitor  *monitor.Monitor
	Metrics  *observability.Metrics
	Location *time.Location
	Version  string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP API server.
type Server struct {
	echo     *echo.Echo
	settings *conf.WebServerSettings
	deps     Deps
	log      logger.Logger
	started  time.Time
}

// New builds the server and registers every route.
func New(settings *conf.WebServerSettings, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}

	s := &Server{
		echo:     echo.New(),
		settings: settings,
		deps:     deps,
		log:      GetLogger(),
		started:  deps.Now(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Logger = logger.NewEchoAdapter(s.log.Module("echo"), logger.EchoLevel("warn"))
	s.echo.HTTPErrorHandler = s.errorHandler
	s.echo.Server.ReadTimeout = ReadTimeout
	s.echo.Server.WriteTimeout = WriteTimeout
	s.echo.Server.IdleTimeout = IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.BodyLimit(BodyLimit))
	s.echo.Use(requestLogger(s.log))
	if s.deps.Metrics != nil {
		s.echo.Use(requestMetrics(s.deps.Metrics.HTTP))
	}
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	api := s.echo.Group("/api/v1")

	api.GET("/days/today", s.getToday)
	api.GET("/days/:date", s.getDay)
	api.PUT("/days/:date", s.putDay)
	api.DELETE("/days/:date", s.resetDay)
	api.POST("/days/:date/slots/:slot/toggle", s.toggleSlot)
	api.PUT("/days/:date/note", s.putNote)
	api.GET("/history", s.getHistory)
	api.GET("/weekly", s.getWeekly)

	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.putSettings)

	api.GET("/presence", s.getPresence)
	api.PUT("/presence", s.putPresence)
	api.POST("/notifications/test", s.sendTest)
	api.GET("/banners", s.listBanners)
	api.POST("/banners/:id/confirm", s.confirmBanner)
	api.DELETE("/banners/:id", s.dismissBanner)
	api.GET("/notices", s.listNotices)
	api.POST("/notices/:id/shown", s.noticeShown)
	api.POST("/notices/:id/click", s.noticeClick)

	api.GET("/family", s.listFamily)
	api.POST("/family", s.addFamily)
	api.DELETE("/family/:id", s.removeFamily)

	api.POST("/monitor/start", s.startMonitor)
	api.POST("/monitor/stop", s.stopMonitor)
	api.GET("/monitor/status", s.monitorStatus)
	api.PUT("/monitor/visibility", s.monitorVisibility)
}

func (s *Server) health(c echo.Context) error {
	uptime := s.deps.Now().Sub(s.started)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.deps.Version,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      s.deps.Now().Format(time.RFC3339),
	})
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logger.String("address", s.settings.Listen))
		err := s.echo.Start(s.settings.Listen)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.New(err).
				Component("http").
				Category(errors.CategoryConfiguration).
				Context("listen", s.settings.Listen).
				Build()
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http server shutdown incomplete", logger.Error(err))
	}
	return <-errCh
}

func (s *Server) today() string {
	return model.DateKey(s.deps.Now(), s.deps.Location)
}
