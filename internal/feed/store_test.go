package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
)

func result(text string) domain.AnalysisResult {
	return domain.AnalysisResult{
		Text:       text,
		Sentiment:  domain.SentimentNeutral,
		Confidence: 0.5,
		Language:   "en",
	}
}

func TestStore_AppendPrependsNewestFirst(t *testing.T) {
	store := NewStore()

	store.Append(result("first"))
	store.Append(result("second"))
	store.Append(result("third"))

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "third", snapshot[0].Text)
	assert.Equal(t, "second", snapshot[1].Text)
	assert.Equal(t, "first", snapshot[2].Text)
}

func TestStore_AppendNeverExceedsCapacity(t *testing.T) {
	store := NewStore()

	for i := 0; i < Capacity+50; i++ {
		store.Append(result(fmt.Sprintf("entry-%d", i)))
		require.LessOrEqual(t, store.Len(), Capacity)
	}

	snapshot := store.Snapshot()
	require.Len(t, snapshot, Capacity)

	// Newest survives, oldest silently dropped
	assert.Equal(t, fmt.Sprintf("entry-%d", Capacity+49), snapshot[0].Text)
	assert.Equal(t, "entry-50", snapshot[Capacity-1].Text)
}

func TestStore_ReplaceSupersedesContents(t *testing.T) {
	store := NewStore()
	store.Append(result("socket-a"))
	store.Append(result("socket-b"))

	store.Replace([]domain.AnalysisResult{result("poll-1"), result("poll-2"), result("poll-3")})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 3)

	// Server-provided order is adopted verbatim, no merge with prior entries
	assert.Equal(t, "poll-1", snapshot[0].Text)
	assert.Equal(t, "poll-2", snapshot[1].Text)
	assert.Equal(t, "poll-3", snapshot[2].Text)
}

func TestStore_ReplaceEmptyClearsFeed(t *testing.T) {
	store := NewStore()
	store.Append(result("old"))

	store.Replace(nil)

	assert.Zero(t, store.Len())
	assert.Empty(t, store.Snapshot())
}

func TestStore_ReplaceCapsAtCapacity(t *testing.T) {
	store := NewStore()

	oversized := make([]domain.AnalysisResult, Capacity+20)
	for i := range oversized {
		oversized[i] = result(fmt.Sprintf("entry-%d", i))
	}

	store.Replace(oversized)

	require.Equal(t, Capacity, store.Len())
	assert.Equal(t, "entry-0", store.Snapshot()[0].Text)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Append(result("original"))

	snapshot := store.Snapshot()
	snapshot[0].Text = "mutated"

	assert.Equal(t, "original", store.Snapshot()[0].Text, "entries must not be mutable after insertion")
}

func TestStore_Reset(t *testing.T) {
	store := NewStore()
	store.Append(result("a"))
	store.Append(result("b"))

	store.Reset()

	assert.Zero(t, store.Len())
}
