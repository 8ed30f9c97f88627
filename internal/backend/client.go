// Package backend implements the HTTP client for the external analysis API.
//
// All calls are single-shot: a non-2xx response or transport failure is
// surfaced as a structured transport error and never retried. A circuit
// breaker fails fast when the backend is persistently down; it does not add
// retries, so every failure stays terminal for that one operation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
	apperrors "github.com/aoluwar/Sentiment-Analysis/internal/errors"
	"github.com/aoluwar/Sentiment-Analysis/internal/metrics"
)

const maxResponseBytes = 4 << 20

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Backend circuit state changed", "from", from.String(), "to", to.String())
			metrics.BackendCircuitState.Set(float64(to))
		},
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// startStreamRequest matches the backend's POST /stream/start payload.
type startStreamRequest struct {
	Source string            `json:"source"`
	Config startStreamConfig `json:"config"`
}

type startStreamConfig struct {
	Keywords []string `json:"keywords"`
	Limit    int      `json:"limit"`
	Language string   `json:"language"`
}

type startStreamResponse struct {
	StreamID string `json:"stream_id"`
	Status   string `json:"status"`
}

func (c *Client) StartStream(ctx context.Context, cfg domain.StreamConfig) (domain.StreamSession, error) {
	req := startStreamRequest{
		Source: cfg.Source,
		Config: startStreamConfig{
			Keywords: cfg.Keywords,
			Limit:    cfg.Limit,
			Language: cfg.Language,
		},
	}

	var resp startStreamResponse
	if err := c.doJSON(ctx, http.MethodPost, "/stream/start", "stream_start", req, &resp); err != nil {
		return domain.StreamSession{}, err
	}

	return domain.StreamSession{
		StreamID: resp.StreamID,
		Status:   normalizeStatus(resp.Status),
	}, nil
}

func (c *Client) StopStream(ctx context.Context, streamID string) error {
	path := "/stream/stop/" + url.PathEscape(streamID)
	return c.doJSON(ctx, http.MethodPost, path, "stream_stop", nil, nil)
}

type streamStatusResponse struct {
	Status string `json:"status"`
}

func (c *Client) StreamStatus(ctx context.Context, streamID string) (domain.StreamStatus, error) {
	path := "/stream/status/" + url.PathEscape(streamID)
	var resp streamStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, path, "stream_status", nil, &resp); err != nil {
		return domain.StatusUnknown, err
	}
	return normalizeStatus(resp.Status), nil
}

func (c *Client) StreamResults(ctx context.Context, streamID string, limit int) ([]domain.AnalysisResult, error) {
	path := fmt.Sprintf("/stream/results/%s?limit=%d", url.PathEscape(streamID), limit)
	var results []domain.AnalysisResult
	if err := c.doJSON(ctx, http.MethodGet, path, "stream_results", nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

type analyzeRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

func (c *Client) Analyze(ctx context.Context, text, model string) (domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	err := c.doJSON(ctx, http.MethodPost, "/analyze", "analyze", analyzeRequest{Text: text, Model: model}, &result)
	return result, err
}

func (c *Client) RecentAnalyses(ctx context.Context, limit int) ([]domain.AnalysisResult, error) {
	path := fmt.Sprintf("/analyses/recent?limit=%d", limit)
	var results []domain.AnalysisResult
	if err := c.doJSON(ctx, http.MethodGet, path, "recent_analyses", nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) SentimentDistribution(ctx context.Context) (map[string]int, error) {
	var dist map[string]int
	if err := c.doJSON(ctx, http.MethodGet, "/analyses/distribution/sentiment", "sentiment_distribution", nil, &dist); err != nil {
		return nil, err
	}
	return dist, nil
}

func (c *Client) EmotionDistribution(ctx context.Context) (map[string]float64, error) {
	var dist map[string]float64
	if err := c.doJSON(ctx, http.MethodGet, "/analyses/distribution/emotion", "emotion_distribution", nil, &dist); err != nil {
		return nil, err
	}
	return dist, nil
}

func (c *Client) Health(ctx context.Context) (domain.HealthReport, error) {
	var report domain.HealthReport
	err := c.doJSON(ctx, http.MethodGet, "/health", "health", nil, &report)
	return report, err
}

// doJSON performs one request through the circuit breaker and decodes the
// JSON response into out (out may be nil for empty responses).
func (c *Client) doJSON(ctx context.Context, method, path, endpoint string, body, out any) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, body, out)
	})
	metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return apperrors.TransportError("analysis backend unavailable", 0, err)
		}
		return err
	}

	metrics.BackendRequestsTotal.WithLabelValues(endpoint, "success").Inc()
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.InternalError("failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.InternalError("failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.TransportError("analysis backend request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return apperrors.TransportError(
			fmt.Sprintf("analysis backend returned status %d", resp.StatusCode),
			resp.StatusCode, nil,
		).WithContext("path", path)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return apperrors.ParseError("failed to decode backend response", err).WithContext("path", path)
	}
	return nil
}

// normalizeStatus maps backend status strings onto the session status enum.
// The backend reports "started" on stream creation and "completed" when a
// bounded stream drains; both collapse onto the states the dashboard tracks.
func normalizeStatus(s string) domain.StreamStatus {
	switch s {
	case "running", "started", "initializing":
		return domain.StatusRunning
	case "stopped", "completed":
		return domain.StatusStopped
	case "idle":
		return domain.StatusIdle
	default:
		return domain.StatusUnknown
	}
}
