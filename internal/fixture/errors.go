package fixture

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for fixture lifecycle and verification failures.
var (
	ErrIndexCreation  = errors.New("index creation not acknowledged")
	ErrDocumentInsert = errors.New("document insert failed")
	ErrIndexDeletion  = errors.New("index deletion not acknowledged")
	ErrQueryTimeout   = errors.New("backend call timed out")
	ErrAssertion      = errors.New("assertion failed")
	ErrNoDocuments    = errors.New("fixture has no documents")
)

// AssertionError describes a verification whose hit count did not match.
type AssertionError struct {
	Check    string
	IDs      []string
	Expected int
	Actual   int
	Reason   string
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: ", e.Check)
	if e.Reason != "" {
		b.WriteString(e.Reason)
	} else {
		fmt.Fprintf(&b, "expected %d hits, got %d", e.Expected, e.Actual)
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " (ids: %s)", strings.Join(e.IDs, ", "))
	}
	return b.String()
}

func (e *AssertionError) Unwrap() error { return ErrAssertion }
