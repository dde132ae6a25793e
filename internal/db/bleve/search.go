package bleve

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

// Search translates the boolean query into a bleve query and runs it.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q == nil || q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}

	idx, err := s.open(q.IndexName)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, err
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q.DocType, q.Query), q.EffectiveLimit(), q.Offset, false)
	if len(q.ReturnFields) > 0 {
		req.Fields = q.ReturnFields
	} else {
		req.Fields = []string{"*"}
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{
		Total:   int(res.Total), //nolint:gosec // hit count fits in int
		Entries: make([]db.SearchEntry, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		_, id, _ := strings.Cut(hit.ID, ":")
		fields := make(map[string]string, len(hit.Fields))
		for k, v := range hit.Fields {
			if k == db.TypeField && len(q.ReturnFields) == 0 {
				continue
			}
			fields[k] = formatField(v)
		}
		out.Entries = append(out.Entries, db.SearchEntry{
			Key:    hit.ID,
			ID:     id,
			Score:  hit.Score,
			Fields: fields,
		})
	}
	return out, nil
}

func formatField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// buildQuery returns a query matching documents of docType (any type when
// empty) that satisfy b.
func buildQuery(docType string, b query.Bool) bq.Query {
	if b.MatchesNothing() {
		return bleve.NewMatchNoneQuery()
	}

	root := buildBool(b)
	if docType != "" {
		root.AddMust(typeQuery(docType))
	}
	return root
}

func typeQuery(docType string) bq.Query {
	tq := bleve.NewTermQuery(docType)
	tq.SetField(db.TypeField)
	return tq
}

// buildBool assumes b does not match nothing. Should clauses use
// minimum-should-match 1; nested groups that match nothing are dropped from
// should and must_not.
func buildBool(b query.Bool) *bq.BooleanQuery {
	out := bleve.NewBooleanQuery()

	for _, c := range b.Must() {
		out.AddMust(buildClause(c))
	}

	should := 0
	for _, c := range b.Should() {
		if c.IsGroup() && c.Nested().MatchesNothing() {
			continue
		}
		out.AddShould(buildClause(c))
		should++
	}
	if should > 0 {
		out.SetMinShould(1)
	}

	for _, c := range b.MustNot() {
		if c.IsGroup() && c.Nested().MatchesNothing() {
			continue
		}
		out.AddMustNot(buildClause(c))
	}

	return out
}

func buildClause(c query.Clause) bq.Query {
	switch {
	case c.IsGroup():
		return buildBool(*c.Nested())
	case c.IsMatch():
		mq := bleve.NewMatchQuery(c.Match())
		mq.SetField(c.Field())
		return mq
	case c.IsRange():
		return buildRange(c.Field(), *c.Range())
	default:
		return bleve.NewMatchNoneQuery()
	}
}

func buildRange(field string, r query.Range) bq.Query {
	var minV, maxV *float64
	var minInc, maxInc *bool
	inclusive, exclusive := true, false

	switch {
	case r.GT() != nil:
		minV, minInc = r.GT(), &exclusive
	case r.GTE() != nil:
		minV, minInc = r.GTE(), &inclusive
	}
	switch {
	case r.LT() != nil:
		maxV, maxInc = r.LT(), &exclusive
	case r.LTE() != nil:
		maxV, maxInc = r.LTE(), &inclusive
	}

	rq := bleve.NewNumericRangeInclusiveQuery(minV, maxV, minInc, maxInc)
	rq.SetField(field)
	return rq
}
