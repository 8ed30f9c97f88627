package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin allows empty origins (non-browser clients) and same-host
// browsers. The dashboard is served from this process, so anything else is
// a cross-site connection attempt.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}

	slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
	return false
}

// handleFeedSocket attaches a dashboard viewer to the feed fan-out.
func (s *Server) handleFeedSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	viewerID := uuid.New()
	if err := s.hub.Register(conn); err != nil {
		slog.Warn("Failed to register viewer", "viewer_id", viewerID.String(), "error", err)
		return nil
	}
	slog.Debug("Viewer attached", "viewer_id", viewerID.String())

	// Late joiners get the current feed so they do not start from a blank pane.
	s.hub.PublishFeed(s.controller.State().Results)

	// Read pump - blocks until connection closes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(conn)
	slog.Debug("Viewer detached", "viewer_id", viewerID.String())

	return nil
}
