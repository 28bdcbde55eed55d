// Package api exposes the conversation and recommendation pipelines
// over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/crateguide/crateguide/internal/conversation"
	"github.com/crateguide/crateguide/internal/portrait"
	"github.com/crateguide/crateguide/internal/recommend"
)

// Server represents the API server.
type Server struct {
	echo         *echo.Echo
	port         int
	engine       *conversation.Engine
	orchestrator *recommend.Orchestrator
	portraits    *portrait.Builder
}

// NewServer creates a new API server. rateLimit and rateBurst bound
// requests per second across all clients; a non-positive rateLimit
// disables limiting.
func NewServer(port int, rateLimit float64, rateBurst int, engine *conversation.Engine, orchestrator *recommend.Orchestrator, portraits *portrait.Builder) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if rateLimit > 0 {
		e.Use(RateLimit(rateLimit, rateBurst))
	}

	server := &Server{
		echo:         e,
		port:         port,
		engine:       engine,
		orchestrator: orchestrator,
		portraits:    portraits,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.POST("/portraits", s.createPortrait)
	v1.POST("/conversations", s.startConversation)
	v1.POST("/conversations/:id/messages", s.continueConversation)
	v1.POST("/conversations/:id/recommendations", s.generateRecommendations)
}

// Start begins the API server and blocks until interrupted.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
