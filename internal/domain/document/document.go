// Package document defines the synthetic documents indexed by the fixture.
package document

import (
	"fmt"
	"strconv"
)

// Field names written to the backend.
const (
	FieldName  = "name"
	FieldValue = "value"
)

// Document is an immutable synthetic document. Name carries the identifier
// used as the match key; Value is filler and never matched on.
type Document struct {
	id    string
	value int
}

// New creates a Document for the given identifier.
func New(id string, value int) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	return Document{id: id, value: value}, nil
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Name returns the match key, equal to the identifier.
func (d Document) Name() string { return d.id }

// Value returns the random filler value.
func (d Document) Value() int { return d.value }

// Fields returns the flat field map stored by backends.
func (d Document) Fields() map[string]string {
	return map[string]string{
		FieldName:  d.Name(),
		FieldValue: strconv.Itoa(d.value),
	}
}
