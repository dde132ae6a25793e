package db

import (
	"time"

	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

// DefaultSearchLimit caps returned entries when SearchQuery.Limit is zero.
const DefaultSearchLimit = 100

// SearchQuery is the input for a boolean search.
type SearchQuery struct {
	IndexName string
	DocType   string // empty searches all types
	Query     query.Bool
	Offset    int
	Limit     int
	// Timeout is the server-side execution budget; zero leaves the backend default.
	Timeout      time.Duration
	ReturnFields []string
}

// EffectiveLimit returns Limit or DefaultSearchLimit when unset.
func (q *SearchQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	return q.Limit
}

// SearchResult is the output of a search operation. Total counts all
// matching documents, Entries holds at most the requested page.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	ID     string
	Score  float64
	Fields map[string]string
}
