// Package broadcast implements the viewer fan-out hub using the actor pattern.
//
// The Hub relays feed changes published by the session controller to every
// attached dashboard viewer. Uses single goroutine + command channel (no
// mutexes). Per-connection write goroutines handle slow clients gracefully.
package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
	"github.com/aoluwar/Sentiment-Analysis/internal/metrics"
)

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	conn  *websocket.Conn
	errCh chan error
}

type unregisterCmd struct {
	baseHubCmd
	conn *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	data []byte
}

type viewerCountCmd struct {
	baseHubCmd
	replyCh chan int
}

type stopCmd struct {
	baseHubCmd
}

// --- Hub ---

type Hub struct {
	cmdCh      chan hubCmd
	clock      clockwork.Clock
	viewers    map[*websocket.Conn]*viewerWriter
	maxViewers int
	done       chan struct{}
}

func NewHub(clock clockwork.Clock, maxViewers int) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clock:      clock,
		viewers:    make(map[*websocket.Conn]*viewerWriter),
		maxViewers: maxViewers,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a viewer connection. Returns an error if the viewer limit
// is reached; the connection is closed in that case.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{conn: conn, errCh: errCh}
	return <-errCh
}

// Unregister removes a viewer connection. Safe for unknown connections.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{conn: conn}
}

// ViewerCount returns the number of attached viewers.
func (h *Hub) ViewerCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- viewerCountCmd{replyCh: replyCh}
	return <-replyCh
}

// PublishResult fans out one live analysis result to all viewers.
// Viewers receive the same frame shape the backend pushes.
func (h *Hub) PublishResult(result domain.AnalysisResult) {
	h.publish(map[string]any{"type": "analysis", "result": result})
}

// PublishFeed fans out a full feed replacement (polling path, reset).
func (h *Hub) PublishFeed(results []domain.AnalysisResult) {
	h.publish(map[string]any{"type": "feed", "results": results})
}

// Stop closes all viewer connections and stops the hub goroutine.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}
	<-h.done
}

func (h *Hub) publish(payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal viewer frame", "error", err)
		return
	}
	h.cmdCh <- broadcastCmd{data: data}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Viewer hub panic recovered", "panic", r)
			metrics.ViewerHubPanicsTotal.Inc()
			h.closeAll("viewer hub panic")
		}
	}()

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.conn)
		case broadcastCmd:
			h.handleBroadcast(c.data)
		case viewerCountCmd:
			c.replyCh <- len(h.viewers)
		case stopCmd:
			h.closeAll("server shutting down")
			return
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.viewers) >= h.maxViewers {
		slog.Warn("Rejecting viewer: max viewers reached", "max_viewers", h.maxViewers)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max viewers (%d) reached", h.maxViewers)
		return
	}

	h.viewers[c.conn] = newViewerWriter(c.conn, h.clock)
	metrics.ViewerConnectedClients.Set(float64(len(h.viewers)))
	slog.Debug("Viewer registered", "total_viewers", len(h.viewers))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	vw, exists := h.viewers[conn]
	if !exists {
		return
	}

	vw.stop()
	delete(h.viewers, conn)
	metrics.ViewerConnectedClients.Set(float64(len(h.viewers)))
	slog.Debug("Viewer unregistered", "remaining_viewers", len(h.viewers))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*websocket.Conn
	for conn, vw := range h.viewers {
		select {
		case vw.sendCh <- data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow viewer")
		metrics.ViewerSlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}
}

func (h *Hub) closeAll(reason string) {
	for conn, vw := range h.viewers {
		vw.stopGraceful(reason)
		delete(h.viewers, conn)
	}
	metrics.ViewerConnectedClients.Set(0)
}
