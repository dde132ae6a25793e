package bleve

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testIndex() *db.IndexDefinition {
	return db.NewIndex("my-index").Tag("name").Numeric("value").Typed().MustBuild()
}

func seed(t *testing.T, s *Store, docType string, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for i, id := range ids {
		fields := map[string]string{"name": id, "value": strconv.Itoa(i)}
		if err := s.Upsert(ctx, "my-index", docType, id, fields, true); err != nil {
			t.Fatalf("Upsert(%s): %v", id, err)
		}
	}
}

func match(t *testing.T, ids ...string) query.Bool {
	t.Helper()
	should := make([]query.Clause, 0, len(ids))
	for _, id := range ids {
		c, err := query.NewMatch("name", id)
		if err != nil {
			t.Fatal(err)
		}
		should = append(should, c)
	}
	inner, err := query.NewBool(nil, should, nil)
	if err != nil {
		t.Fatal(err)
	}
	outer, err := query.NewBool([]query.Clause{query.Group(inner)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return outer
}

func TestCreateIndex_Lifecycle(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	exists, err := s.IndexExists(ctx, "my-index")
	if err != nil || exists {
		t.Fatalf("IndexExists before create = %v, %v", exists, err)
	}

	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := s.CreateIndex(ctx, testIndex()); !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("second CreateIndex = %v, want ErrIndexExists", err)
	}

	exists, err = s.IndexExists(ctx, "my-index")
	if err != nil || !exists {
		t.Fatalf("IndexExists after create = %v, %v", exists, err)
	}

	if err := s.DropIndex(ctx, "my-index"); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if err := s.DropIndex(ctx, "my-index"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("second DropIndex = %v, want ErrIndexNotFound", err)
	}
}

func TestCreateIndex_Invalid(t *testing.T) {
	s := newMemStore(t)
	if err := s.CreateIndex(context.Background(), nil); err == nil {
		t.Error("expected error for nil definition")
	}
	if err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: "x"}); err == nil {
		t.Error("expected error for definition without fields")
	}
}

func TestUpsert_UnknownIndex(t *testing.T) {
	s := newMemStore(t)
	err := s.Upsert(context.Background(), "missing", "t", "a", map[string]string{"name": "a"}, true)
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("err = %v, want ErrIndexNotFound", err)
	}
}

func TestUpsert_BadNumber(t *testing.T) {
	s := newMemStore(t)
	if err := s.CreateIndex(context.Background(), testIndex()); err != nil {
		t.Fatal(err)
	}
	err := s.Upsert(context.Background(), "my-index", "t", "a", map[string]string{"value": "x"}, true)
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestUpsert_ReplacesDocument(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatal(err)
	}

	seed(t, s, "my-test", "a")
	if err := s.Upsert(ctx, "my-index", "my-test", "a", map[string]string{"name": "a", "value": "42"}, true); err != nil {
		t.Fatal(err)
	}

	res, err := s.Search(ctx, &db.SearchQuery{IndexName: "my-index", DocType: "my-test", Query: match(t, "a")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Fatalf("Total = %d, want 1", res.Total)
	}
	if got := res.Entries[0].Fields["value"]; got != "42" {
		t.Errorf("value = %q, want 42", got)
	}
}

func TestSearch_ShouldSemantics(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatal(err)
	}
	seed(t, s, "my-test", "a", "b", "c", "d")

	tests := []struct {
		name string
		ids  []string
		want int
	}{
		{"single", []string{"b"}, 1},
		{"pair", []string{"a", "c"}, 2},
		{"with non-member", []string{"a", "no-in-result-set"}, 1},
		{"only non-member", []string{"no-in-result-set"}, 0},
		{"duplicates", []string{"a", "a"}, 1},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(ctx, &db.SearchQuery{
				IndexName: "my-index",
				DocType:   "my-test",
				Query:     match(t, tt.ids...),
			})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if res.Total != tt.want || len(res.Entries) != tt.want {
				t.Errorf("hits = %d/%d, want %d", res.Total, len(res.Entries), tt.want)
			}
		})
	}
}

func TestSearch_TypeIsolation(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatal(err)
	}
	seed(t, s, "my-test", "a")
	seed(t, s, "other", "a")

	res, err := s.Search(ctx, &db.SearchQuery{IndexName: "my-index", DocType: "my-test", Query: match(t, "a")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Errorf("typed Total = %d, want 1", res.Total)
	}
	if res.Entries[0].ID != "a" || res.Entries[0].Key != "my-test:a" {
		t.Errorf("entry = %+v", res.Entries[0])
	}

	res, err = s.Search(ctx, &db.SearchQuery{IndexName: "my-index", Query: match(t, "a")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Errorf("untyped Total = %d, want 2", res.Total)
	}
}

func TestSearch_RangeAndMustNot(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatal(err)
	}
	seed(t, s, "my-test", "a", "b", "c", "d") // values 0..3

	lo := 1.0
	r, err := query.NewRangeBounds(nil, &lo, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	rc, err := query.NewRange("value", r)
	if err != nil {
		t.Fatal(err)
	}
	notC, err := query.NewMatch("name", "c")
	if err != nil {
		t.Fatal(err)
	}
	q, err := query.NewBool([]query.Clause{rc}, nil, []query.Clause{notC})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Search(ctx, &db.SearchQuery{IndexName: "my-index", Query: q})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 { // b, d
		t.Errorf("Total = %d, want 2", res.Total)
	}
}

func TestSearch_Paging(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatal(err)
	}
	seed(t, s, "my-test", "a", "b", "c")

	res, err := s.Search(ctx, &db.SearchQuery{
		IndexName: "my-index",
		Query:     match(t, "a", "b", "c"),
		Limit:     2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || len(res.Entries) != 2 {
		t.Errorf("Total = %d, entries = %d, want 3/2", res.Total, len(res.Entries))
	}
}

func TestSearch_UnknownIndex(t *testing.T) {
	s := newMemStore(t)
	_, err := s.Search(context.Background(), &db.SearchQuery{IndexName: "missing", Query: match(t, "a")})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("err = %v, want ErrIndexNotFound", err)
	}
}

func TestClosedStore(t *testing.T) {
	s, err := NewStore(Config{})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if err := s.Ping(context.Background()); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Ping = %v, want ErrClosed", err)
	}
	if err := s.CreateIndex(context.Background(), testIndex()); !errors.Is(err, db.ErrClosed) {
		t.Errorf("CreateIndex = %v, want ErrClosed", err)
	}
}

func TestOnDiskReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(Config{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatal(err)
	}
	seed(t, s, "my-test", "a", "b")
	s.Close()

	s2, err := NewStore(Config{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if err := s2.CreateIndex(ctx, testIndex()); !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("CreateIndex on existing dir = %v, want ErrIndexExists", err)
	}
	res, err := s2.Search(ctx, &db.SearchQuery{IndexName: "my-index", Query: match(t, "b")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Errorf("Total = %d, want 1", res.Total)
	}

	if err := s2.DropIndex(ctx, "my-index"); err != nil {
		t.Fatal(err)
	}
	exists, err := s2.IndexExists(ctx, "my-index")
	if err != nil || exists {
		t.Errorf("IndexExists after drop = %v, %v", exists, err)
	}
}
