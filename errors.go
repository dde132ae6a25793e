package matchcheck

import (
	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/fixture"
)

// Sentinel errors re-exported from the fixture and storage layers.
// Use errors.Is() to check.
var (
	ErrIndexCreation  = fixture.ErrIndexCreation
	ErrDocumentInsert = fixture.ErrDocumentInsert
	ErrIndexDeletion  = fixture.ErrIndexDeletion
	ErrQueryTimeout   = fixture.ErrQueryTimeout
	ErrAssertion      = fixture.ErrAssertion
	ErrNoDocuments    = fixture.ErrNoDocuments
	ErrIndexNotFound  = db.ErrIndexNotFound
)

// AssertionError reports a check whose hit count did not match.
// Use errors.As() to inspect it.
type AssertionError = fixture.AssertionError
