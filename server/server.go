// Package server exposes the document upload, progress and answer
// endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/alan-mat/docqa/internal/answer"
	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/indexing"
	"github.com/alan-mat/docqa/internal/metrics"
	"github.com/alan-mat/docqa/internal/progress"
)

var (
	ErrMissingAnswerer = errors.New("server requires an answerer")
	ErrMissingIndexer  = errors.New("server requires an indexer in sync mode")
	ErrMissingEnqueuer = errors.New("server requires an enqueuer in async mode")
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	ListenHost       string
	ListenPort       int
	Async            bool
	ProgressInterval time.Duration
	MaxUploadSize    int64
}

func DefaultConfig() Config {
	return Config{
		ListenPort:       8080,
		ProgressInterval: 500 * time.Millisecond,
		MaxUploadSize:    64 << 20,
	}
}

// Indexer indexes an uploaded archive within the request.
type Indexer interface {
	IndexArchive(ctx context.Context, jobID string, archive []byte) (*indexing.BatchResult, error)
}

// Enqueuer hands an uploaded archive to a background worker.
type Enqueuer interface {
	EnqueueIndexArchive(ctx context.Context, jobID string, archive []byte) error
}

type Answerer interface {
	Answer(ctx context.Context, keyPoints []string, numKeyPoints int) ([]answer.Answer, error)
}

type Server struct {
	config Config
	echo   *echo.Echo

	tracker  progress.Tracker
	indexer  Indexer
	enqueuer Enqueuer
	answerer Answerer
	metrics  *metrics.Metrics
}

type Option func(*Server)

// WithTracker sets the tracker progress streams read from. In sync mode it
// must be the tracker the indexer reports to.
func WithTracker(t progress.Tracker) Option {
	return func(s *Server) {
		s.tracker = t
	}
}

func WithIndexer(i Indexer) Option {
	return func(s *Server) {
		s.indexer = i
	}
}

func WithEnqueuer(e Enqueuer) Option {
	return func(s *Server) {
		s.enqueuer = e
	}
}

func WithAnswerer(a Answerer) Option {
	return func(s *Server) {
		s.answerer = a
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(config Config, opts ...Option) (*Server, error) {
	def := DefaultConfig()
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = def.ProgressInterval
	}
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = def.MaxUploadSize
	}

	s := &Server{config: config}
	for _, opt := range opts {
		opt(s)
	}

	if s.answerer == nil {
		return nil, ErrMissingAnswerer
	}
	if config.Async && s.enqueuer == nil {
		return nil, ErrMissingEnqueuer
	}
	if !config.Async && s.indexer == nil {
		return nil, ErrMissingIndexer
	}
	if s.tracker == nil {
		s.tracker = progress.NewMemoryTracker()
	}

	s.echo = s.newEcho()
	return s, nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	if s.metrics != nil {
		e.Use(s.countRequests)
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/upload", s.upload)
	e.GET("/progress", s.latestProgress)
	e.GET("/progress/:job_id", s.jobProgress)
	e.POST("/generate", s.generate)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	return e
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.ListenHost, s.config.ListenPort)
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "listener", s.Addr(), "async", s.config.Async)
		errCh <- s.echo.Start(s.Addr())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("failed to serve", "err", err)
		return err
	case <-ctx.Done():
	}

	slog.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := next(c); err != nil {
			c.Error(err)
		}
		s.metrics.HTTPRequest(c.Path(), c.Response().Status)
		return nil
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// errorHandler writes every error as {"error": msg}. Input errors keep
// their message; failures of other services and unclassified errors are
// reported generically.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		switch apperr.KindOf(err) {
		case apperr.KindInput:
			code = http.StatusBadRequest
			msg = err.Error()
		case apperr.KindExternal:
			code = http.StatusBadGateway
			msg = "upstream service error"
		}
	}

	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "code", code, "err", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		slog.Warn("failed to write error response", "code", code, "err", err)
	}
}
