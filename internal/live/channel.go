// Package live implements the connection manager for the backend's push channel.
//
// At most one channel is open at a time: Open closes any prior channel before
// dialing. Transport callbacks are reframed as explicit events (opened,
// message, error, closed) delivered on a single channel, so the session
// controller consumes socket activity the same way it consumes commands and
// timer ticks. There is no auto-reconnect; after an error or remote close the
// polling fallback (or a user re-toggle) is the only recovery path.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
	"github.com/aoluwar/Sentiment-Analysis/internal/metrics"
)

// EventKind identifies what happened on the live channel.
type EventKind string

const (
	EventOpened  EventKind = "opened"
	EventMessage EventKind = "message"
	EventError   EventKind = "error"
	EventClosed  EventKind = "closed"
)

// Event is one occurrence on the live channel. Result is set for
// EventMessage, Err for EventError.
type Event struct {
	Kind   EventKind
	Result domain.AnalysisResult
	Err    error
}

// Conn is the minimal surface of a websocket connection the manager needs.
// Satisfied by *websocket.Conn; swapped for a fake in tests.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
	Close() error
}

// Dialer establishes websocket connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaDialer dials with gorilla's default websocket dialer.
type GorillaDialer struct {
	HandshakeTimeout time.Duration
}

func (d GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// subscribeMessage is sent once on successful open.
type subscribeMessage struct {
	Action   string `json:"action"`
	StreamID string `json:"stream_id"`
}

// frame is the envelope the backend pushes. Only "analysis" frames carry a
// result; all other types are ignored, not erroneous.
type frame struct {
	Type   string                 `json:"type"`
	Result *domain.AnalysisResult `json:"result"`
}

// Manager owns at most one live channel. Events from a superseded channel
// are discarded by generation check, so a slow read loop from a closed
// channel can never disturb its successor.
type Manager struct {
	dialer Dialer
	wsURL  string

	events chan Event

	mu   sync.Mutex
	conn Conn
	gen  uint64
}

func NewManager(dialer Dialer, wsURL string) *Manager {
	return &Manager{
		dialer: dialer,
		wsURL:  wsURL,
		events: make(chan Event, 64),
	}
}

// Events returns the channel on which live events are delivered.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Open closes any existing channel first, establishes a new socket, and
// sends the subscribe message carrying streamID. The opened event is
// emitted after the subscription is on the wire.
func (m *Manager) Open(ctx context.Context, streamID string) error {
	m.Close()

	conn, err := m.dialer.Dial(ctx, m.wsURL)
	if err != nil {
		metrics.LiveChannelOpens.WithLabelValues("error").Inc()
		return err
	}

	if err := conn.WriteJSON(subscribeMessage{Action: "subscribe", StreamID: streamID}); err != nil {
		_ = conn.Close()
		metrics.LiveChannelOpens.WithLabelValues("error").Inc()
		return err
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.conn = conn
	m.mu.Unlock()

	metrics.LiveChannelOpens.WithLabelValues("success").Inc()
	slog.Info("Live channel opened", "stream_id", streamID)

	m.emit(gen, Event{Kind: EventOpened})
	go m.readLoop(conn, gen, streamID)

	return nil
}

// Close tears down the current channel, if any. Idempotent and safe to call
// with no active channel. The closed event is emitted by the read loop when
// it observes the closed connection.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.gen++
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) readLoop(conn Conn, gen uint64, streamID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Distinguish our own teardown from a remote close: after Close
			// the generation has moved on and emit discards the event anyway.
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.emit(gen, Event{Kind: EventClosed})
			} else {
				m.emit(gen, Event{Kind: EventError, Err: err})
			}
			m.dropConn(gen)
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			metrics.LiveParseErrorsTotal.Inc()
			slog.Warn("Dropping malformed live payload", "stream_id", streamID, "error", err)
			continue
		}

		if f.Type != "analysis" || f.Result == nil {
			metrics.LiveEventsTotal.WithLabelValues("ignored").Inc()
			continue
		}

		m.emit(gen, Event{Kind: EventMessage, Result: *f.Result})
	}
}

// dropConn clears the stored connection if it still belongs to gen.
func (m *Manager) dropConn(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen && m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

// emit delivers an event unless the channel has been superseded. Delivery is
// non-blocking; if the consumer has fallen 64 events behind, newest events
// are dropped rather than stalling the read loop.
func (m *Manager) emit(gen uint64, ev Event) {
	m.mu.Lock()
	current := m.gen
	m.mu.Unlock()
	if gen != current {
		return
	}

	metrics.LiveEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	select {
	case m.events <- ev:
	default:
		slog.Warn("Live event buffer full, dropping event", "kind", ev.Kind)
	}
}
