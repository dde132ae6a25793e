package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	IndexManager
	DocumentWriter
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides search index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// DocumentWriter stores documents into an index.
type DocumentWriter interface {
	// Upsert inserts or replaces the document keyed by id. With forceVisible
	// the call returns only once the document is searchable.
	Upsert(ctx context.Context, index, docType, id string, fields map[string]string, forceVisible bool) error
}

// Searcher runs boolean queries against an index.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}
