package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Dashboard page
	s.echo.GET("/", s.handleDashboard)

	// Stream session
	s.echo.POST("/api/stream/start", s.handleStreamStart)
	s.echo.POST("/api/stream/stop", s.handleStreamStop)
	s.echo.POST("/api/stream/live", s.handleLiveToggle)
	s.echo.GET("/api/stream/state", s.handleStreamState)

	// Analysis tabs
	s.echo.POST("/api/analyze", s.handleAnalyze)
	s.echo.GET("/api/analyses/recent", s.handleRecentAnalyses)
	s.echo.GET("/api/distribution/sentiment", s.handleSentimentDistribution)
	s.echo.GET("/api/distribution/emotion", s.handleEmotionDistribution)
	s.echo.GET("/api/health", s.handleBackendHealth)

	// Viewer WebSocket
	s.echo.GET("/ws/feed", s.handleFeedSocket)
}
