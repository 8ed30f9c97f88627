package domain

// Sentiment is the classified polarity of a piece of text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentUnknown  Sentiment = "unknown"
)

// AnalysisResult is a single sentiment/emotion analysis produced by the backend.
// Results are immutable once received; the feed never rewrites an entry.
type AnalysisResult struct {
	Text       string             `json:"text"`
	Sentiment  Sentiment          `json:"sentiment"`
	Confidence float64            `json:"confidence"`
	Emotions   map[string]float64 `json:"emotions,omitempty"`
	Language   string             `json:"language"`
	Source     string             `json:"source,omitempty"`
	Timestamp  string             `json:"timestamp,omitempty"`
}

// HealthReport is the backend's component-level health summary.
type HealthReport struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}
