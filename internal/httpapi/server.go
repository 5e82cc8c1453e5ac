// Package httpapi provides the HTTP API for answerd.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/pipeline"
)

// Answerer runs the question pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string) pipeline.Answer
}

// Ingester stores documents for retrieval.
type Ingester interface {
	IngestDocument(ctx context.Context, title, text string) (int, error)
}

// Server exposes the pipeline over HTTP.
type Server struct {
	echo     *echo.Echo
	answerer Answerer
	ingester Ingester
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(answerer Answerer, ingester Ingester, logger *zap.Logger, cfg *Config) (*Server, error) {
	if answerer == nil {
		return nil, fmt.Errorf("answerer cannot be nil")
	}
	if ingester == nil {
		return nil, fmt.Errorf("ingester cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8800}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		answerer: answerer,
		ingester: ingester,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	// Legacy chat shape kept for existing clients.
	s.echo.POST("/chat", s.handleChat)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/ask", s.handleAsk)
	v1.POST("/documents", s.handleIngest)
}

// AskRequest is the request body for POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the response body for POST /chat.
type ChatResponse struct {
	Reply      string                `json:"reply"`
	Provenance []pipeline.Provenance `json:"provenance"`
}

// IngestRequest is the request body for POST /api/v1/documents.
type IngestRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// IngestResponse is the response body for POST /api/v1/documents.
type IngestResponse struct {
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAsk returns the full pipeline result for a question.
func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ask request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}

	answer := s.answerer.Answer(c.Request().Context(), req.Question)
	return c.JSON(http.StatusOK, answer)
}

// handleChat serves the original chat wire shape: a reply string plus
// provenance, with a polite nudge on empty input.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusOK, ChatResponse{
			Reply:      "Please enter a question.",
			Provenance: []pipeline.Provenance{},
		})
	}

	answer := s.answerer.Answer(c.Request().Context(), req.Message)
	return c.JSON(http.StatusOK, ChatResponse{
		Reply:      answer.Natural,
		Provenance: answer.Provenance,
	})
}

// handleIngest chunks and stores a document.
func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ingest request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title field is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	chunks, err := s.ingester.IngestDocument(c.Request().Context(), req.Title, req.Text)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("title", req.Title), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "ingestion failed")
	}
	return c.JSON(http.StatusOK, IngestResponse{Title: req.Title, Chunks: chunks})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
