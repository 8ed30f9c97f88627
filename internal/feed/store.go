// Package feed implements the bounded, ordered store of recent analysis results.
//
// The store holds the newest Capacity results, newest first. Entries arrive
// either one at a time from the live channel (Append) or as a whole list from
// the polling path (Replace). The two sources are never merged; a mode switch
// hard-replaces the feed.
package feed

import (
	"github.com/aoluwar/Sentiment-Analysis/internal/domain"
	"github.com/aoluwar/Sentiment-Analysis/internal/metrics"
)

// Capacity is the maximum number of entries the feed retains.
// Oldest entries are silently dropped on overflow.
const Capacity = 100

// Store is not safe for concurrent use. It is owned exclusively by the
// session controller goroutine; all access happens inside its command loop.
type Store struct {
	entries []domain.AnalysisResult
}

func NewStore() *Store {
	return &Store{
		entries: make([]domain.AnalysisResult, 0, Capacity),
	}
}

// Append prepends one result and truncates to the Capacity most recent.
func (s *Store) Append(result domain.AnalysisResult) {
	s.entries = append(s.entries, domain.AnalysisResult{})
	copy(s.entries[1:], s.entries)
	s.entries[0] = result

	if len(s.entries) > Capacity {
		s.entries = s.entries[:Capacity]
	}

	metrics.FeedAppendsTotal.Inc()
	metrics.FeedSize.Set(float64(len(s.entries)))
}

// Replace discards the current feed and adopts the given list verbatim,
// in server-provided order. The list is still capped at Capacity.
func (s *Store) Replace(results []domain.AnalysisResult) {
	if len(results) > Capacity {
		results = results[:Capacity]
	}

	s.entries = s.entries[:0]
	s.entries = append(s.entries, results...)

	metrics.FeedReplacesTotal.Inc()
	metrics.FeedSize.Set(float64(len(s.entries)))
}

// Snapshot returns a copy of the current feed, newest first.
// The copy keeps callers from mutating entries after insertion.
func (s *Store) Snapshot() []domain.AnalysisResult {
	out := make([]domain.AnalysisResult, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the current number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Reset drops all entries. Called on stream restart.
func (s *Store) Reset() {
	s.entries = s.entries[:0]
	metrics.FeedSize.Set(0)
}
