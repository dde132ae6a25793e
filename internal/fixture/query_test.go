package fixture

import (
	"strconv"
	"testing"

	"github.com/kailas-cloud/matchcheck/internal/domain/document"
	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

func TestBuildQuery_Shape(t *testing.T) {
	q, err := BuildQuery("a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(q.Must()) != 1 || len(q.Should()) != 0 || len(q.MustNot()) != 0 {
		t.Fatalf("outer group = %d/%d/%d, want 1/0/0", len(q.Must()), len(q.Should()), len(q.MustNot()))
	}
	outer := q.Must()[0]
	if !outer.IsGroup() {
		t.Fatal("outer must clause should be a group")
	}

	inner := outer.Nested()
	if len(inner.Must()) != 0 || len(inner.Should()) != 2 {
		t.Fatalf("inner group = %d must / %d should, want 0/2", len(inner.Must()), len(inner.Should()))
	}
	for i, want := range []string{"a", "b"} {
		c := inner.Should()[i]
		if !c.IsMatch() || c.Field() != document.FieldName || c.Match() != want {
			t.Errorf("should[%d] = %s:%s, want name:%s", i, c.Field(), c.Match(), want)
		}
	}
	if q.MatchesNothing() {
		t.Error("query with ids should be able to match")
	}
}

func TestBuildQuery_Empty(t *testing.T) {
	q, err := BuildQuery()
	if err != nil {
		t.Fatalf("empty ids must not be an error: %v", err)
	}
	if !q.MatchesNothing() {
		t.Error("empty query should match nothing")
	}
}

func TestBuildQuery_EmptyID(t *testing.T) {
	if _, err := BuildQuery("a", ""); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestBuildQuery_TooManyIDs(t *testing.T) {
	ids := make([]string, query.MaxClausesPerGroup+1)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	if _, err := BuildQuery(ids...); err == nil {
		t.Error("expected error above clause limit")
	}
}
