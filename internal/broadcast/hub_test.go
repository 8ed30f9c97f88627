package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
)

// hubHarness upgrades incoming connections and registers them with the hub,
// mirroring what the feed socket handler does.
type hubHarness struct {
	hub *Hub
	srv *httptest.Server

	mu           sync.Mutex
	registerErrs []error
}

func newHubHarness(t *testing.T, maxViewers int) *hubHarness {
	t.Helper()

	// Anchor the fake clock at wall time so connection deadlines derived from
	// it land in the future.
	clock := clockwork.NewFakeClockAt(time.Now())
	h := &hubHarness{hub: NewHub(clock, maxViewers)}

	upgrader := websocket.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		err = h.hub.Register(conn)
		h.mu.Lock()
		h.registerErrs = append(h.registerErrs, err)
		h.mu.Unlock()
		if err != nil {
			return
		}

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					h.hub.Unregister(conn)
					return
				}
			}
		}()
	}))

	t.Cleanup(h.srv.Close)
	t.Cleanup(h.hub.Stop)
	return h
}

func (h *hubHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func (h *hubHarness) registerErrors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.registerErrs...)
}

func readFrame(t *testing.T, client *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestHub_PublishResultReachesAllViewers(t *testing.T) {
	h := newHubHarness(t, 4)
	clientA := h.dial(t)
	clientB := h.dial(t)

	require.Eventually(t, func() bool { return h.hub.ViewerCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	h.hub.PublishResult(domain.AnalysisResult{
		Text:      "superb",
		Sentiment: domain.SentimentPositive,
	})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		frame := readFrame(t, client)

		var kind string
		require.NoError(t, json.Unmarshal(frame["type"], &kind))
		assert.Equal(t, "analysis", kind)

		var result domain.AnalysisResult
		require.NoError(t, json.Unmarshal(frame["result"], &result))
		assert.Equal(t, "superb", result.Text)
	}
}

func TestHub_PublishFeedSendsFullReplacement(t *testing.T) {
	h := newHubHarness(t, 4)
	client := h.dial(t)

	require.Eventually(t, func() bool { return h.hub.ViewerCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	h.hub.PublishFeed([]domain.AnalysisResult{
		{Text: "newest"},
		{Text: "older"},
	})

	frame := readFrame(t, client)

	var kind string
	require.NoError(t, json.Unmarshal(frame["type"], &kind))
	assert.Equal(t, "feed", kind)

	var results []domain.AnalysisResult
	require.NoError(t, json.Unmarshal(frame["results"], &results))
	require.Len(t, results, 2)
	assert.Equal(t, "newest", results[0].Text)
}

func TestHub_RejectsViewersOverLimit(t *testing.T) {
	h := newHubHarness(t, 1)
	h.dial(t)

	require.Eventually(t, func() bool { return h.hub.ViewerCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	h.dial(t)

	require.Eventually(t, func() bool {
		errs := h.registerErrors()
		return len(errs) == 2 && errs[1] != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, h.hub.ViewerCount())
}

func TestHub_UnregisterOnClientDisconnect(t *testing.T) {
	h := newHubHarness(t, 4)
	client := h.dial(t)

	require.Eventually(t, func() bool { return h.hub.ViewerCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	client.Close()

	require.Eventually(t, func() bool { return h.hub.ViewerCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestHub_StopSendsCloseFrame(t *testing.T) {
	// No harness cleanup here: the test stops the hub itself.
	clock := clockwork.NewFakeClockAt(time.Now())
	hub := NewHub(clock, 4)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = hub.Register(conn)
	}))
	defer srv.Close()

	client, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer client.Close()

	require.Eventually(t, func() bool { return hub.ViewerCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Stop()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = client.ReadMessage()
	require.Error(t, err)

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close frame, got %v", err)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, "server shutting down", closeErr.Text)
}

func TestHub_SlowViewerIsEvicted(t *testing.T) {
	h := newHubHarness(t, 4)
	h.dial(t) // never reads

	require.Eventually(t, func() bool { return h.hub.ViewerCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// Flood with large frames until the socket buffer and the per-viewer
	// queue both fill, at which point the hub must drop the viewer rather
	// than stall the broadcast path.
	payload := domain.AnalysisResult{Text: strings.Repeat("x", 256<<10)}
	go func() {
		for i := 0; i < 128; i++ {
			h.hub.PublishResult(payload)
		}
	}()

	require.Eventually(t, func() bool { return h.hub.ViewerCount() == 0 },
		10*time.Second, 20*time.Millisecond)
}
