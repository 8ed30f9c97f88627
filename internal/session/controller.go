// Package session implements the stream session lifecycle using the actor pattern.
//
// The Controller serializes everything that can touch session state - user
// commands, backend responses, live channel events, and poll ticks - through
// a single goroutine and command channel (no mutexes). HTTP calls run in
// their own goroutines and post results back as commands; results tagged
// with a stream id that no longer matches the current session are dropped,
// so a slow poll response can never resurrect a stopped feed.
package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
	apperrors "github.com/aoluwar/Sentiment-Analysis/internal/errors"
	"github.com/aoluwar/Sentiment-Analysis/internal/feed"
	"github.com/aoluwar/Sentiment-Analysis/internal/live"
	"github.com/aoluwar/Sentiment-Analysis/internal/metrics"
)

// LiveChannel is the connection manager surface the controller drives.
type LiveChannel interface {
	Open(ctx context.Context, streamID string) error
	Close()
	Events() <-chan live.Event
}

// StartRequest carries the user's stream parameters.
type StartRequest struct {
	Keywords []string `json:"keywords"`
	Source   string   `json:"source"`
	Language string   `json:"language"`
	Limit    int      `json:"limit"`
}

// State is a consistent snapshot of the session for rendering.
type State struct {
	Session        domain.StreamSession    `json:"session"`
	LiveMode       bool                    `json:"live_mode"`
	ConnectionLost bool                    `json:"connection_lost"`
	LastError      string                  `json:"last_error,omitempty"`
	Results        []domain.AnalysisResult `json:"results"`
}

// --- Command types ---

type command interface{ isCommand() }

type baseCommand struct{}

func (baseCommand) isCommand() {}

type startCmd struct {
	baseCommand
	req   StartRequest
	reply chan error
}

type startResultCmd struct {
	baseCommand
	session domain.StreamSession
	err     error
}

type stopCmd struct {
	baseCommand
	reply chan struct{}
}

type stopResultCmd struct {
	baseCommand
	streamID string
	err      error
}

type setLiveCmd struct {
	baseCommand
	enabled bool
	reply   chan struct{}
}

type stateCmd struct {
	baseCommand
	reply chan State
}

type pollResultCmd struct {
	baseCommand
	streamID string
	status   domain.StreamStatus
	results  []domain.AnalysisResult
	err      error
}

type shutdownCmd struct {
	baseCommand
}

// --- Controller ---

type Controller struct {
	api       domain.StreamAPI
	channel   LiveChannel
	publisher domain.FeedPublisher
	clock     clockwork.Clock

	pollInterval time.Duration

	cmdCh chan command
	done  chan struct{}

	// State below is owned by the run goroutine exclusively.
	store       *feed.Store
	session     domain.StreamSession
	liveMode    bool
	connLost    bool
	channelOpen bool
	lastError   string
	pollTicker  clockwork.Ticker
	pollTick    <-chan time.Time
}

// NewController creates the session controller and starts its command loop.
// Live mode starts enabled; SetLiveMode(false) switches to the polling
// fallback. publisher may be nil when no viewer fan-out is attached.
func NewController(api domain.StreamAPI, channel LiveChannel, publisher domain.FeedPublisher, clock clockwork.Clock, pollInterval time.Duration) *Controller {
	c := &Controller{
		api:          api,
		channel:      channel,
		publisher:    publisher,
		clock:        clock,
		pollInterval: pollInterval,
		cmdCh:        make(chan command, 64),
		done:         make(chan struct{}),
		store:        feed.NewStore(),
		session:      domain.StreamSession{Status: domain.StatusIdle},
		liveMode:     true,
	}
	go c.run()
	return c
}

// Start begins a new stream session. Empty keyword input is rejected locally
// with a validation error before any network call is made.
func (c *Controller) Start(req StartRequest) error {
	reply := make(chan error, 1)
	c.cmdCh <- startCmd{req: req, reply: reply}
	return <-reply
}

// Stop ends the current session. The live channel is closed and the poll
// timer cancelled immediately; the backend stop call is best-effort.
func (c *Controller) Stop() {
	reply := make(chan struct{}, 1)
	c.cmdCh <- stopCmd{reply: reply}
	<-reply
}

// SetLiveMode toggles between the live channel and the polling fallback.
func (c *Controller) SetLiveMode(enabled bool) {
	reply := make(chan struct{}, 1)
	c.cmdCh <- setLiveCmd{enabled: enabled, reply: reply}
	<-reply
}

// State returns a snapshot of the session and feed.
func (c *Controller) State() State {
	reply := make(chan State, 1)
	c.cmdCh <- stateCmd{reply: reply}
	return <-reply
}

// Shutdown releases timers and channels and stops the command loop.
// Safe to call once; blocks until the loop has exited.
func (c *Controller) Shutdown() {
	c.cmdCh <- shutdownCmd{}
	<-c.done
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		select {
		case cmd := <-c.cmdCh:
			switch cm := cmd.(type) {
			case startCmd:
				cm.reply <- c.handleStart(cm.req)
			case startResultCmd:
				c.handleStartResult(cm)
			case stopCmd:
				c.handleStop()
				cm.reply <- struct{}{}
			case stopResultCmd:
				c.handleStopResult(cm)
			case setLiveCmd:
				c.handleSetLive(cm.enabled)
				cm.reply <- struct{}{}
			case stateCmd:
				cm.reply <- c.snapshot()
			case pollResultCmd:
				c.handlePollResult(cm)
			case shutdownCmd:
				c.teardown()
				return
			}
		case ev := <-c.channel.Events():
			c.handleLiveEvent(ev)
		case <-c.pollTick:
			c.handlePollTick()
		}
	}
}

func (c *Controller) handleStart(req StartRequest) error {
	keywords := trimKeywords(req.Keywords)
	if len(keywords) == 0 {
		err := apperrors.ValidationError("at least one keyword is required")
		c.lastError = err.Message
		return err
	}

	switch c.session.Status {
	case domain.StatusStarting, domain.StatusRunning:
		err := apperrors.ValidationError("a stream is already active")
		c.lastError = err.Message
		return err
	}

	c.lastError = ""
	c.connLost = false
	c.setStatus(domain.StatusStarting)
	c.session.StreamID = ""
	c.store.Reset()
	c.publishFeed()

	cfg := domain.StreamConfig{
		Source:   req.Source,
		Keywords: keywords,
		Limit:    req.Limit,
		Language: req.Language,
	}
	go func() {
		session, err := c.api.StartStream(context.Background(), cfg)
		c.cmdCh <- startResultCmd{session: session, err: err}
	}()

	return nil
}

func (c *Controller) handleStartResult(cm startResultCmd) {
	if c.session.Status != domain.StatusStarting {
		// Session was stopped or torn down while the start call was in flight.
		metrics.StaleResponsesDroppedTotal.Inc()
		return
	}

	if cm.err != nil {
		c.setStatus(domain.StatusIdle)
		c.session.StreamID = ""
		c.lastError = cm.err.Error()
		slog.Error("Stream start failed", "error", cm.err)
		return
	}

	c.session = cm.session
	if c.session.Status == domain.StatusUnknown {
		c.session.Status = domain.StatusRunning
	}
	metrics.SessionTransitionsTotal.WithLabelValues(string(c.session.Status)).Inc()
	slog.Info("Stream started", "stream_id", c.session.StreamID, "status", c.session.Status)

	if c.liveMode {
		c.openChannel()
	} else if c.session.Status == domain.StatusRunning {
		c.startPoll()
	}
}

func (c *Controller) handleStop() {
	c.closeChannel()
	c.stopPoll()

	streamID := c.session.StreamID
	c.session = domain.StreamSession{Status: domain.StatusStopped}
	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StatusStopped)).Inc()
	c.lastError = ""
	c.connLost = false

	// Best-effort: the session is stopped locally whatever the backend says.
	if streamID != "" {
		go func() {
			err := c.api.StopStream(context.Background(), streamID)
			c.cmdCh <- stopResultCmd{streamID: streamID, err: err}
		}()
	}
}

func (c *Controller) handleStopResult(cm stopResultCmd) {
	if cm.err == nil {
		slog.Info("Stream stopped", "stream_id", cm.streamID)
		return
	}
	slog.Warn("Backend stop call failed", "stream_id", cm.streamID, "error", cm.err)
	if c.session.Status == domain.StatusStopped {
		c.lastError = cm.err.Error()
	}
}

func (c *Controller) handleSetLive(enabled bool) {
	if enabled == c.liveMode {
		return
	}
	c.liveMode = enabled

	if enabled {
		c.stopPoll()
		if c.session.Status == domain.StatusRunning {
			c.openChannel()
		}
		return
	}

	c.closeChannel()
	c.connLost = false
	if c.session.Status == domain.StatusRunning {
		c.startPoll()
	}
}

func (c *Controller) handleLiveEvent(ev live.Event) {
	switch ev.Kind {
	case live.EventOpened:
		c.connLost = false
	case live.EventMessage:
		if c.session.Status != domain.StatusRunning {
			return
		}
		c.store.Append(ev.Result)
		if c.publisher != nil {
			c.publisher.PublishResult(ev.Result)
		}
	case live.EventError, live.EventClosed:
		// No auto-reconnect: the poll fallback or a user re-toggle recovers.
		c.channelOpen = false
		c.connLost = true
		if ev.Err != nil {
			slog.Warn("Live channel lost", "error", ev.Err)
		} else {
			slog.Info("Live channel closed by remote")
		}
	}
}

func (c *Controller) handlePollTick() {
	if c.session.Status != domain.StatusRunning {
		return
	}
	metrics.PollTicksTotal.Inc()

	streamID := c.session.StreamID
	go func() {
		status, err := c.api.StreamStatus(context.Background(), streamID)
		if err != nil {
			c.cmdCh <- pollResultCmd{streamID: streamID, err: err}
			return
		}
		results, err := c.api.StreamResults(context.Background(), streamID, feed.Capacity)
		c.cmdCh <- pollResultCmd{streamID: streamID, status: status, results: results, err: err}
	}()
}

func (c *Controller) handlePollResult(cm pollResultCmd) {
	if cm.streamID != c.session.StreamID || c.session.Status != domain.StatusRunning {
		metrics.StaleResponsesDroppedTotal.Inc()
		return
	}

	if cm.err != nil {
		// Non-fatal: surface the message, let the next tick try fresh.
		c.lastError = cm.err.Error()
		slog.Warn("Poll failed", "stream_id", cm.streamID, "error", cm.err)
		return
	}

	c.lastError = ""
	c.session.Status = cm.status
	if cm.status != domain.StatusRunning {
		metrics.SessionTransitionsTotal.WithLabelValues(string(cm.status)).Inc()
		c.stopPoll()
	}

	c.store.Replace(cm.results)
	c.publishFeed()
}

func (c *Controller) openChannel() {
	if err := c.channel.Open(context.Background(), c.session.StreamID); err != nil {
		c.connLost = true
		c.lastError = err.Error()
		slog.Error("Failed to open live channel", "stream_id", c.session.StreamID, "error", err)
		return
	}
	c.channelOpen = true
}

func (c *Controller) closeChannel() {
	if !c.channelOpen {
		return
	}
	c.channel.Close()
	c.channelOpen = false
}

func (c *Controller) startPoll() {
	if c.pollTicker != nil {
		return
	}
	c.pollTicker = c.clock.NewTicker(c.pollInterval)
	c.pollTick = c.pollTicker.Chan()
}

func (c *Controller) stopPoll() {
	if c.pollTicker == nil {
		return
	}
	c.pollTicker.Stop()
	c.pollTicker = nil
	c.pollTick = nil
}

func (c *Controller) teardown() {
	c.closeChannel()
	c.stopPoll()
	slog.Info("Session controller stopped")
}

func (c *Controller) setStatus(status domain.StreamStatus) {
	c.session.Status = status
	metrics.SessionTransitionsTotal.WithLabelValues(string(status)).Inc()
}

func (c *Controller) snapshot() State {
	return State{
		Session:        c.session,
		LiveMode:       c.liveMode,
		ConnectionLost: c.connLost,
		LastError:      c.lastError,
		Results:        c.store.Snapshot(),
	}
}

func (c *Controller) publishFeed() {
	if c.publisher != nil {
		c.publisher.PublishFeed(c.store.Snapshot())
	}
}

func trimKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
