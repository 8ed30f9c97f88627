package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/aoluwar/Sentiment-Analysis/internal/errors"
	"github.com/aoluwar/Sentiment-Analysis/internal/session"
	"github.com/aoluwar/Sentiment-Analysis/internal/version"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

func (s *Server) handleDashboard(c echo.Context) error {
	data := map[string]any{
		"Version": version.Get().Version,
	}
	return s.dashboardTemplate.Execute(c.Response(), data)
}

// startStreamRequest is what the dashboard form posts. Keywords may arrive
// as a list or as one comma-separated string.
type startStreamRequest struct {
	Keywords    []string `json:"keywords"`
	KeywordText string   `json:"keyword_text"`
	Source      string   `json:"source"`
	Language    string   `json:"language"`
	Limit       int      `json:"limit"`
}

func (s *Server) handleStreamStart(c echo.Context) error {
	var req startStreamRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	keywords := req.Keywords
	if len(keywords) == 0 && req.KeywordText != "" {
		keywords = strings.Split(req.KeywordText, ",")
	}
	if req.Source == "" {
		req.Source = s.config.DefaultSource
	}
	if req.Language == "" {
		req.Language = s.config.DefaultLanguage
	}

	if err := s.controller.Start(session.StartRequest{
		Keywords: keywords,
		Source:   req.Source,
		Language: req.Language,
		Limit:    req.Limit,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, s.controller.State())
}

func (s *Server) handleStreamStop(c echo.Context) error {
	s.controller.Stop()
	return c.JSON(http.StatusOK, s.controller.State())
}

type liveToggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleLiveToggle(c echo.Context) error {
	var req liveToggleRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	s.controller.SetLiveMode(req.Enabled)
	return c.JSON(http.StatusOK, s.controller.State())
}

func (s *Server) handleStreamState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.controller.State())
}

type analyzeRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return apperrors.ValidationError("text is required")
	}

	result, err := s.analysis.Analyze(c.Request().Context(), req.Text, req.Model)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleRecentAnalyses(c echo.Context) error {
	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return apperrors.ValidationError("limit must be a positive integer")
		}
		limit = min(n, maxRecentLimit)
	}

	results, err := s.analysis.RecentAnalyses(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) handleSentimentDistribution(c echo.Context) error {
	dist, err := s.analysis.SentimentDistribution(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dist)
}

func (s *Server) handleEmotionDistribution(c echo.Context) error {
	dist, err := s.analysis.EmotionDistribution(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dist)
}

func (s *Server) handleBackendHealth(c echo.Context) error {
	report, err := s.analysis.Health(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
