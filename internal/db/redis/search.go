package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

// Search runs a boolean query via FT.SEARCH. A query that can never match is
// answered locally with an empty result.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q == nil || q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query.MatchesNothing() {
		return &db.SearchResult{Entries: []db.SearchEntry{}}, nil
	}

	args := []string{q.IndexName, buildQueryString(q.DocType, q.Query)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	if q.Timeout > 0 {
		args = append(args, "TIMEOUT", strconv.FormatInt(q.Timeout.Milliseconds(), 10))
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.EffectiveLimit()),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw, q.IndexName)
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage, index string) (*db.SearchResult, error) {
	res := &db.SearchResult{Entries: []db.SearchEntry{}}
	if len(raw) == 0 {
		return res, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	res.Total = int(total)

	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		res.Entries = append(res.Entries, db.SearchEntry{
			Key:    key,
			ID:     idFromKey(key, index),
			Fields: parseFieldPairs(fields),
		})
	}

	return res, nil
}

// idFromKey strips "<index>:<type>:" from a document key.
func idFromKey(key, index string) string {
	rest := strings.TrimPrefix(key, db.KeyPrefix(index))
	if _, id, ok := strings.Cut(rest, ":"); ok {
		return id
	}
	return rest
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildQueryString translates a boolean query into FT.SEARCH syntax
// (DIALECT 2). Match clauses target TAG fields.
func buildQueryString(docType string, b query.Bool) string {
	expr := buildBool(b)
	if docType != "" {
		typeFilter := buildTagFilter(db.TypeField, docType)
		if expr == "" {
			return typeFilter
		}
		return typeFilter + " " + expr
	}
	if expr == "" {
		return "*"
	}
	return expr
}

func buildBool(b query.Bool) string {
	var parts []string

	for _, c := range b.Must() {
		if s := buildClause(c); s != "" {
			parts = append(parts, s)
		}
	}

	if should := buildShouldGroup(b.Should()); should != "" {
		parts = append(parts, should)
	}

	for _, c := range b.MustNot() {
		if c.IsGroup() && c.Nested().MatchesNothing() {
			continue
		}
		if s := buildClause(c); s != "" {
			parts = append(parts, "-"+s)
		}
	}

	return strings.Join(parts, " ")
}

func buildClause(c query.Clause) string {
	switch {
	case c.IsGroup():
		inner := buildBool(*c.Nested())
		if inner == "" {
			return ""
		}
		return "(" + inner + ")"
	case c.IsMatch():
		return buildTagFilter(c.Field(), c.Match())
	case c.IsRange():
		return buildNumericFilter(c.Field(), *c.Range())
	default:
		return ""
	}
}

func buildShouldGroup(clauses []query.Clause) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c.IsGroup() && c.Nested().MatchesNothing() {
			continue
		}
		if s := buildClause(c); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func buildTagFilter(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

func buildNumericFilter(field string, r query.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = fmt.Sprintf("(%g", *r.GT())
	} else if r.GTE() != nil {
		minBound = fmt.Sprintf("%g", *r.GTE())
	}

	if r.LT() != nil {
		maxBound = fmt.Sprintf("(%g", *r.LT())
	} else if r.LTE() != nil {
		maxBound = fmt.Sprintf("%g", *r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", field, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)
