package domain

import "context"

// StreamStatus is the lifecycle state of a tracked stream session.
type StreamStatus string

const (
	StatusIdle     StreamStatus = "idle"
	StatusStarting StreamStatus = "starting"
	StatusRunning  StreamStatus = "running"
	StatusStopped  StreamStatus = "stopped"
	StatusUnknown  StreamStatus = "unknown"
)

// StreamSession identifies one started stream on the backend.
type StreamSession struct {
	StreamID string       `json:"stream_id"`
	Status   StreamStatus `json:"status"`
}

// StreamConfig is the request payload for starting a stream.
type StreamConfig struct {
	Source   string   `json:"source"`
	Keywords []string `json:"keywords"`
	Limit    int      `json:"limit"`
	Language string   `json:"language"`
}

// StreamAPI is the subset of the backend API driving the stream lifecycle.
type StreamAPI interface {
	StartStream(ctx context.Context, cfg StreamConfig) (StreamSession, error)
	StopStream(ctx context.Context, streamID string) error
	StreamStatus(ctx context.Context, streamID string) (StreamStatus, error)
	StreamResults(ctx context.Context, streamID string, limit int) ([]AnalysisResult, error)
}

// AnalysisAPI is the subset of the backend API serving one-off analysis
// and aggregate views for the dashboard tabs.
type AnalysisAPI interface {
	Analyze(ctx context.Context, text, model string) (AnalysisResult, error)
	RecentAnalyses(ctx context.Context, limit int) ([]AnalysisResult, error)
	SentimentDistribution(ctx context.Context) (map[string]int, error)
	EmotionDistribution(ctx context.Context) (map[string]float64, error)
	Health(ctx context.Context) (HealthReport, error)
}

// FeedPublisher receives feed changes for fan-out to attached viewers.
type FeedPublisher interface {
	PublishResult(result AnalysisResult)
	PublishFeed(results []AnalysisResult)
}
