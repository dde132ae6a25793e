package fixture

import (
	"context"

	"github.com/kailas-cloud/matchcheck/internal/db"
)

// Searcher runs boolean queries against an index.
type Searcher interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Backend is the search engine the fixture drives. CreateIndex reports
// db.ErrIndexExists when the index is already present; DropIndex reports
// db.ErrIndexNotFound when there was nothing to delete.
type Backend interface {
	Searcher
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	Upsert(ctx context.Context, index, docType, id string, fields map[string]string, forceVisible bool) error
	Close()
}
