package redis

import (
	"context"
	"errors"

	"github.com/kailas-cloud/matchcheck/internal/db"
)

// Upsert writes the document as a hash at <index>:<type>:<id>. HSET replaces
// the given fields and creates the key when absent.
//
// The query engine indexes hashes synchronously while executing HSET, so a
// successful reply already implies visibility; forceVisible needs no extra
// round-trip here.
func (s *Store) Upsert(
	ctx context.Context, index, docType, id string, fields map[string]string, _ bool,
) error {
	if index == "" || docType == "" || id == "" {
		return errors.New("index, type and id are required")
	}

	cmd := s.b().Hset().Key(db.DocumentKey(index, docType, id)).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	cmd = cmd.FieldValue(db.TypeField, docType)

	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}
