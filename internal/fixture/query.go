package fixture

import (
	"fmt"

	"github.com/kailas-cloud/matchcheck/internal/domain/document"
	"github.com/kailas-cloud/matchcheck/internal/domain/query"
)

// BuildQuery returns must(should(name == id, ...)): a document matches when
// its name equals any of ids. No ids yields a query that matches nothing.
func BuildQuery(ids ...string) (query.Bool, error) {
	should := make([]query.Clause, 0, len(ids))
	for _, id := range ids {
		c, err := query.NewMatch(document.FieldName, id)
		if err != nil {
			return query.Bool{}, fmt.Errorf("build query: %w", err)
		}
		should = append(should, c)
	}

	inner, err := query.NewBool(nil, should, nil)
	if err != nil {
		return query.Bool{}, fmt.Errorf("build query: %w", err)
	}
	return query.NewBool([]query.Clause{query.Group(inner)}, nil, nil)
}
