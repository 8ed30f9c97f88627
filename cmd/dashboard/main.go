package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/aoluwar/Sentiment-Analysis/internal/backend"
	"github.com/aoluwar/Sentiment-Analysis/internal/broadcast"
	"github.com/aoluwar/Sentiment-Analysis/internal/config"
	"github.com/aoluwar/Sentiment-Analysis/internal/live"
	"github.com/aoluwar/Sentiment-Analysis/internal/logging"
	"github.com/aoluwar/Sentiment-Analysis/internal/metrics"
	"github.com/aoluwar/Sentiment-Analysis/internal/server"
	"github.com/aoluwar/Sentiment-Analysis/internal/session"
	"github.com/aoluwar/Sentiment-Analysis/internal/version"
)

func setupConfig() *config.Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *server.Server, controller *session.Controller, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		controller.Shutdown()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.BackendAPIURL)

	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, runtime.Version()).Set(1)

	client := backend.NewClient(cfg.BackendAPIURL, cfg.RequestTimeout)

	dialer := live.GorillaDialer{HandshakeTimeout: cfg.RequestTimeout}
	channel := live.NewManager(dialer, cfg.BackendWSURL)

	hub := broadcast.NewHub(clock, cfg.MaxViewers)
	controller := session.NewController(client, channel, hub, clock, cfg.PollInterval)

	srv, err := server.NewServer(cfg, controller, client, hub)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, controller, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
