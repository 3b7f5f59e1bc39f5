// Package server exposes the refresh trigger and the read endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/singleflight"

	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/metrics"
	"WeeklyTop/internal/usecase"
)

// Pipeline is the use case the handlers drive.
type Pipeline interface {
	Refresh(ctx context.Context, now time.Time) (usecase.RefreshResult, error)
	Current(ctx context.Context) domain.WeeklySnapshot
}

// Deps configures a Server.
type Deps struct {
	Pipeline Pipeline
	CronKey  string
	Logger   *slog.Logger
	Metrics  *metrics.Manager
	Now      func() time.Time
}

// Server owns the echo instance and the single-flight guard for refreshes.
type Server struct {
	echo     *echo.Echo
	pipeline Pipeline
	logger   *slog.Logger
	metrics  *metrics.Manager
	now      func() time.Time
	flight   singleflight.Group
}

type refreshResponse struct {
	OK     bool   `json:"ok"`
	WeekID string `json:"weekId"`
	Count  int    `json:"count"`
	Note   string `json:"note,omitempty"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// New builds the router.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		echo:     echo.New(),
		pipeline: deps.Pipeline,
		logger:   logger.With("component", "http"),
		metrics:  deps.Metrics,
		now:      now,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	e.Use(s.observe)

	e.POST("/api/refresh", s.handleRefresh, CronKeyAuth(deps.CronKey))
	e.GET("/api/week/current", s.handleCurrent)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleRefresh(c echo.Context) error {
	// Concurrent triggers share one run. The run outlives a caller that disconnects.
	ctx := context.WithoutCancel(c.Request().Context())
	v, err, shared := s.flight.Do("refresh", func() (any, error) {
		return s.pipeline.Refresh(ctx, s.now())
	})
	if err != nil {
		s.logger.Error("refresh failed", "error", err, "shared", shared)
		return c.JSON(http.StatusInternalServerError, errorResponse{OK: false, Error: "refresh failed"})
	}

	result := v.(usecase.RefreshResult)
	return c.JSON(http.StatusOK, refreshResponse{
		OK:     true,
		WeekID: result.WeekID,
		Count:  result.Count,
		Note:   result.Note,
	})
}

func (s *Server) handleCurrent(c echo.Context) error {
	return c.JSON(http.StatusOK, s.pipeline.Current(c.Request().Context()))
}

func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		started := time.Now()
		err := next(c)
		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordHTTPRequest(route, c.Request().Method, strconv.Itoa(status), time.Since(started))
		return err
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURIPath: true,
		LogError:   true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				s.logger.DebugContext(ctx, "request completed",
					"method", v.Method,
					"path", v.URIPath,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.ErrorContext(ctx, "request failed",
					"method", v.Method,
					"path", v.URIPath,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	})
}
