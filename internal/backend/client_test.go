package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
	apperrors "github.com/aoluwar/Sentiment-Analysis/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestClient_StartStream(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/stream/start", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"stream_id": "abc-123",
			"status":    "started",
		})
	})

	session, err := client.StartStream(context.Background(), domain.StreamConfig{
		Source:   "custom",
		Keywords: []string{"launch", "quality"},
		Limit:    100,
		Language: "en",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc-123", session.StreamID)
	assert.Equal(t, domain.StatusRunning, session.Status)

	assert.Equal(t, "custom", gotBody["source"])
	cfg, ok := gotBody["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"launch", "quality"}, cfg["keywords"])
	assert.Equal(t, float64(100), cfg["limit"])
	assert.Equal(t, "en", cfg["language"])
}

func TestClient_StopStreamEscapesID(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.StopStream(context.Background(), "weird/id"))
	assert.Equal(t, "/stream/stop/weird%2Fid", gotPath)
}

func TestClient_StreamStatusNormalization(t *testing.T) {
	cases := []struct {
		backend string
		want    domain.StreamStatus
	}{
		{"running", domain.StatusRunning},
		{"started", domain.StatusRunning},
		{"initializing", domain.StatusRunning},
		{"stopped", domain.StatusStopped},
		{"completed", domain.StatusStopped},
		{"idle", domain.StatusIdle},
		{"garbage", domain.StatusUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/stream/status/s1", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": tc.backend})
			})

			status, err := client.StreamStatus(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestClient_StreamResultsPassesLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream/results/s1", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]domain.AnalysisResult{
			{Text: "a", Sentiment: domain.SentimentPositive},
			{Text: "b", Sentiment: domain.SentimentNegative},
		})
	})

	results, err := client.StreamResults(context.Background(), "s1", 100)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Text)
}

func TestClient_Analyze(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "love it", req["text"])

		_ = json.NewEncoder(w).Encode(domain.AnalysisResult{
			Text:       "love it",
			Sentiment:  domain.SentimentPositive,
			Confidence: 0.97,
		})
	})

	result, err := client.Analyze(context.Background(), "love it", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentPositive, result.Sentiment)
	assert.InDelta(t, 0.97, result.Confidence, 1e-9)
}

func TestClient_NonSuccessStatusIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.Health(context.Background())
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok, "expected structured error, got %T", err)
	assert.Equal(t, apperrors.TypeTransport, appErr.Type)
	assert.Equal(t, http.StatusBadGateway, appErr.Context["status_code"])
}

func TestClient_MalformedResponseIsParseError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := client.SentimentDistribution(context.Background())
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.TypeParse, appErr.Type)
}

func TestClient_ConnectionRefusedIsTransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)

	_, err := client.Health(context.Background())
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.TypeTransport, appErr.Type)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := client.Health(context.Background())
		require.Error(t, err)
	}

	// Sixth call fails fast without touching the network
	start := time.Now()
	_, err := client.Health(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.TypeTransport, appErr.Type)
}
