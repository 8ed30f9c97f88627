package server

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/aoluwar/Sentiment-Analysis/internal/broadcast"
	"github.com/aoluwar/Sentiment-Analysis/internal/config"
	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
	apperrors "github.com/aoluwar/Sentiment-Analysis/internal/errors"
	"github.com/aoluwar/Sentiment-Analysis/internal/session"
)

// streamController is the session controller surface the handlers drive.
type streamController interface {
	Start(req session.StartRequest) error
	Stop()
	SetLiveMode(enabled bool)
	State() session.State
}

type Server struct {
	echo              *echo.Echo
	config            *config.Config
	controller        streamController
	analysis          domain.AnalysisAPI
	hub               *broadcast.Hub
	dashboardTemplate *template.Template
	startTime         time.Time
}

func NewServer(cfg *config.Config, controller streamController, analysis domain.AnalysisAPI, hub *broadcast.Hub) (*Server, error) {
	dashboardTmpl, err := template.ParseFiles("web/templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:              e,
		config:            cfg,
		controller:        controller,
		analysis:          analysis,
		hub:               hub,
		dashboardTemplate: dashboardTmpl,
		startTime:         time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
