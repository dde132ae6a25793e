// Package query models boolean match queries with must/should/must_not groups.
//
// A Bool is backend-neutral: stores translate it into their own query
// language (FT.SEARCH syntax, bleve query objects). Should clauses follow
// minimum-should-match 1: when a group has should clauses, at least one of
// them has to match.
package query

import "fmt"

// MaxClausesPerGroup is the maximum number of clauses per boolean group.
const MaxClausesPerGroup = 64

// Bool is a boolean query with must/should/must_not semantics.
type Bool struct {
	must    []Clause
	should  []Clause
	mustNot []Clause
}

// NewBool validates and creates a Bool query.
func NewBool(must, should, mustNot []Clause) (Bool, error) {
	if len(must) > MaxClausesPerGroup {
		return Bool{}, fmt.Errorf("too many must clauses (max %d)", MaxClausesPerGroup)
	}
	if len(should) > MaxClausesPerGroup {
		return Bool{}, fmt.Errorf("too many should clauses (max %d)", MaxClausesPerGroup)
	}
	if len(mustNot) > MaxClausesPerGroup {
		return Bool{}, fmt.Errorf("too many must_not clauses (max %d)", MaxClausesPerGroup)
	}
	return Bool{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must clauses.
func (b Bool) Must() []Clause { return b.must }

// Should returns the should clauses.
func (b Bool) Should() []Clause { return b.should }

// MustNot returns the must-not clauses.
func (b Bool) MustNot() []Clause { return b.mustNot }

// IsEmpty reports whether the query has no clauses at all.
func (b Bool) IsEmpty() bool {
	return len(b.must) == 0 && len(b.should) == 0 && len(b.mustNot) == 0
}

// MatchesNothing reports whether no document can ever satisfy the query.
// A group without positive (must or should) clauses matches nothing, and so
// does any group that requires such a group.
func (b Bool) MatchesNothing() bool {
	if len(b.must) == 0 && len(b.should) == 0 {
		return true
	}
	for _, c := range b.must {
		if c.matchesNothing() {
			return true
		}
	}
	if len(b.should) == 0 {
		return false
	}
	for _, c := range b.should {
		if !c.matchesNothing() {
			return false
		}
	}
	return true
}

// Clause is a single boolean clause: a term match, a numeric range, or a nested group.
type Clause struct {
	field     string
	match     string
	rangeExpr *Range
	group     *Bool
}

// NewMatch creates an exact match clause on a field.
func NewMatch(field, value string) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("match field is required")
	}
	if value == "" {
		return Clause{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Clause{field: field, match: value}, nil
}

// NewRange creates a numeric range clause.
func NewRange(field string, r Range) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("range field is required")
	}
	return Clause{field: field, rangeExpr: &r}, nil
}

// Group wraps a nested boolean query as a clause.
func Group(b Bool) Clause {
	return Clause{group: &b}
}

// Field returns the field name (empty for groups).
func (c Clause) Field() string { return c.field }

// Match returns the exact match value.
func (c Clause) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Clause) Range() *Range { return c.rangeExpr }

// Nested returns the nested group, or nil.
func (c Clause) Nested() *Bool { return c.group }

// IsMatch reports whether this is a match clause.
func (c Clause) IsMatch() bool { return c.group == nil && c.match != "" }

// IsRange reports whether this is a range clause.
func (c Clause) IsRange() bool { return c.group == nil && c.rangeExpr != nil }

// IsGroup reports whether this clause wraps a nested group.
func (c Clause) IsGroup() bool { return c.group != nil }

func (c Clause) matchesNothing() bool {
	return c.group != nil && c.group.MatchesNothing()
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeBounds validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeBounds(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
