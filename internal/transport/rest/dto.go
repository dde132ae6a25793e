// Package rest defines the JSON wire format of the search API and an HTTP
// client for it.
package rest

import (
	"fmt"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeIndexNotFound    ErrorCode = "index_not_found"
	ErrorCodeTimeout          ErrorCode = "timeout"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchRequest is the body of POST /v1/indexes/{index}/search.
type SearchRequest struct {
	Type      string    `json:"type,omitempty"`
	Query     BoolQuery `json:"query"`
	Offset    int       `json:"offset,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	TimeoutMs int64     `json:"timeout_ms,omitempty"`
	Fields    []string  `json:"fields,omitempty"`
}

// BoolQuery mirrors query.Bool.
type BoolQuery struct {
	Must    []Clause `json:"must,omitempty"`
	Should  []Clause `json:"should,omitempty"`
	MustNot []Clause `json:"must_not,omitempty"`
}

// Clause holds exactly one of Match, Range or Bool.
type Clause struct {
	Match *MatchClause `json:"match,omitempty"`
	Range *RangeClause `json:"range,omitempty"`
	Bool  *BoolQuery   `json:"bool,omitempty"`
}

// MatchClause is an exact field match.
type MatchClause struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// RangeClause is a numeric range on a field.
type RangeClause struct {
	Field string   `json:"field"`
	GT    *float64 `json:"gt,omitempty"`
	GTE   *float64 `json:"gte,omitempty"`
	LT    *float64 `json:"lt,omitempty"`
	LTE   *float64 `json:"lte,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Total int         `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// SearchHit is a single matching document.
type SearchHit struct {
	ID     string            `json:"id"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields,omitempty"`
}

// BoolFromQuery converts a query into its wire form.
func BoolFromQuery(b query.Bool) BoolQuery {
	return BoolQuery{
		Must:    clausesFromQuery(b.Must()),
		Should:  clausesFromQuery(b.Should()),
		MustNot: clausesFromQuery(b.MustNot()),
	}
}

func clausesFromQuery(cc []query.Clause) []Clause {
	if len(cc) == 0 {
		return nil
	}
	out := make([]Clause, 0, len(cc))
	for _, c := range cc {
		switch {
		case c.IsGroup():
			nested := BoolFromQuery(*c.Nested())
			out = append(out, Clause{Bool: &nested})
		case c.IsMatch():
			out = append(out, Clause{Match: &MatchClause{Field: c.Field(), Value: c.Match()}})
		case c.IsRange():
			r := c.Range()
			out = append(out, Clause{Range: &RangeClause{
				Field: c.Field(), GT: r.GT(), GTE: r.GTE(), LT: r.LT(), LTE: r.LTE(),
			}})
		}
	}
	return out
}

// ToQuery validates the wire form and converts it into a query.
func (b BoolQuery) ToQuery() (query.Bool, error) {
	must, err := clausesToQuery(b.Must)
	if err != nil {
		return query.Bool{}, fmt.Errorf("must: %w", err)
	}
	should, err := clausesToQuery(b.Should)
	if err != nil {
		return query.Bool{}, fmt.Errorf("should: %w", err)
	}
	mustNot, err := clausesToQuery(b.MustNot)
	if err != nil {
		return query.Bool{}, fmt.Errorf("must_not: %w", err)
	}
	return query.NewBool(must, should, mustNot)
}

func clausesToQuery(cc []Clause) ([]query.Clause, error) {
	out := make([]query.Clause, 0, len(cc))
	for i, c := range cc {
		qc, err := c.toQuery()
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		out = append(out, qc)
	}
	return out, nil
}

func (c Clause) toQuery() (query.Clause, error) {
	set := 0
	for _, ok := range []bool{c.Match != nil, c.Range != nil, c.Bool != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return query.Clause{}, fmt.Errorf("exactly one of match, range or bool is required")
	}

	switch {
	case c.Match != nil:
		return query.NewMatch(c.Match.Field, c.Match.Value)
	case c.Range != nil:
		r, err := query.NewRangeBounds(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
		if err != nil {
			return query.Clause{}, err
		}
		return query.NewRange(c.Range.Field, r)
	default:
		nested, err := c.Bool.ToQuery()
		if err != nil {
			return query.Clause{}, err
		}
		return query.Group(nested), nil
	}
}

// ResponseFromResult converts a search result into its wire form.
func ResponseFromResult(res *db.SearchResult) SearchResponse {
	hits := make([]SearchHit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, SearchHit{ID: e.ID, Score: e.Score, Fields: e.Fields})
	}
	return SearchResponse{Total: res.Total, Hits: hits}
}

// Result converts the wire response back into a search result.
func (r SearchResponse) Result() *db.SearchResult {
	entries := make([]db.SearchEntry, 0, len(r.Hits))
	for _, h := range r.Hits {
		entries = append(entries, db.SearchEntry{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return &db.SearchResult{Total: r.Total, Entries: entries}
}
