package fixture

import (
	"context"
	"math/rand/v2"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

// mockBackend implements Backend for tests. Without overrides it behaves
// like an in-memory engine holding the upserted ids.
type mockBackend struct {
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	upsertFn      func(ctx context.Context, index, docType, id string, fields map[string]string, forceVisible bool) error
	searchFn      func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)

	docs        map[string]map[string]string
	created     []*db.IndexDefinition
	dropped     []string
	lastQuery   *db.SearchQuery
	closeCalls  int
	forcedCalls int
}

func newMockBackend() *mockBackend {
	return &mockBackend{docs: make(map[string]map[string]string)}
}

func (m *mockBackend) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return len(m.created) > len(m.dropped), nil
}

func (m *mockBackend) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	m.created = append(m.created, def)
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockBackend) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	m.dropped = append(m.dropped, name)
	m.docs = make(map[string]map[string]string)
	return nil
}

func (m *mockBackend) Upsert(
	ctx context.Context, index, docType, id string, fields map[string]string, forceVisible bool,
) error {
	if forceVisible {
		m.forcedCalls++
	}
	if m.upsertFn != nil {
		return m.upsertFn(ctx, index, docType, id, fields, forceVisible)
	}
	m.docs[id] = fields
	return nil
}

func (m *mockBackend) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	m.lastQuery = q
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	res := &db.SearchResult{Entries: []db.SearchEntry{}}
	if q.Query.MatchesNothing() {
		return res, nil
	}
	for _, id := range shouldIDs(q.Query) {
		if fields, ok := m.docs[id]; ok {
			res.Entries = append(res.Entries, db.SearchEntry{ID: id, Fields: fields})
		}
	}
	res.Total = len(res.Entries)
	return res, nil
}

func (m *mockBackend) Close() { m.closeCalls++ }

// shouldIDs extracts distinct match values from must(should(...)).
func shouldIDs(b query.Bool) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, must := range b.Must() {
		if !must.IsGroup() {
			continue
		}
		for _, c := range must.Nested().Should() {
			if c.IsMatch() && !seen[c.Match()] {
				seen[c.Match()] = true
				ids = append(ids, c.Match())
			}
		}
	}
	return ids
}

// searcherFunc adapts a function to Searcher.
type searcherFunc func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)

func (f searcherFunc) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	return f(ctx, q)
}

func seededGenerator() *Generator {
	return NewGenerator(rand.NewPCG(1, 2))
}
