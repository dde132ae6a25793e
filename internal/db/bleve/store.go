// Package bleve implements db.Store on an embedded bleve index, one bleve
// index per search index name. Indexes live in memory unless a root
// directory is configured.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/matchcheck/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds settings for the embedded store.
type Config struct {
	// Path is the root directory for on-disk indexes. Empty keeps every index in memory.
	Path string
}

// Store is an embedded search store backed by bleve.
type Store struct {
	root string

	mu      sync.RWMutex
	indexes map[string]bleve.Index
	closed  bool
}

// NewStore creates an embedded store. The root directory is created on demand.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create index root: %w", err)
		}
	}
	return &Store{
		root:    cfg.Path,
		indexes: make(map[string]bleve.Index),
	}, nil
}

// Ping reports ErrClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// WaitForReady returns immediately: an embedded store is ready once opened.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close closes every open index. On-disk data is kept.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, idx := range s.indexes {
		_ = idx.Close()
		delete(s.indexes, name)
	}
	s.closed = true
}

// CreateIndex builds a bleve mapping from the definition and opens a new index.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if def == nil {
		return errors.New("index definition is required")
	}
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrClosed}
	}

	if _, ok, err := s.lookupLocked(def.Name); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	} else if ok {
		return db.ErrIndexExists
	}

	m, err := buildMapping(def)
	if err != nil {
		return err
	}

	var idx bleve.Index
	if s.root == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.New(s.path(def.Name), m)
	}
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathExists) {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	s.indexes[def.Name] = idx
	return nil
}

// DropIndex closes the index and deletes its documents.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpDropIndex, Err: db.ErrClosed}
	}

	idx, ok, err := s.lookupLocked(name)
	if err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	if !ok {
		return db.ErrIndexNotFound
	}

	delete(s.indexes, name)
	if err := idx.Close(); err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	if s.root != "" {
		if err := os.RemoveAll(s.path(name)); err != nil {
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
	}
	return nil
}

// IndexExists reports whether the index is open or present on disk.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, &db.Error{Op: db.OpIndexInfo, Err: db.ErrClosed}
	}

	_, ok, err := s.lookupLocked(name)
	if err != nil {
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return ok, nil
}

// Upsert indexes the document under "<type>:<id>". Numeric fields of the
// mapping are stored as numbers. bleve makes a document searchable before
// Index returns, so forceVisible needs no extra work.
func (s *Store) Upsert(
	ctx context.Context, index, docType, id string, fields map[string]string, _ bool,
) error {
	if index == "" || docType == "" || id == "" {
		return errors.New("index, type and id are required")
	}
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}

	idx, err := s.open(index)
	if err != nil {
		return err
	}

	m := idx.Mapping()
	doc := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		if m.FieldMappingForPath(k).Type == "number" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			doc[k] = f
			continue
		}
		doc[k] = v
	}
	doc[db.TypeField] = docType

	if err := idx.Index(docID(docType, id), doc); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	return nil
}

// open returns an index by name, opening it from disk when needed.
func (s *Store) open(name string) (bleve.Index, error) {
	s.mu.RLock()
	idx, ok := s.indexes[name]
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, db.ErrClosed
	}
	if ok {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok, err := s.lookupLocked(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	return idx, nil
}

// lookupLocked finds an open index or opens an existing one from disk.
// Callers hold s.mu for writing.
func (s *Store) lookupLocked(name string) (bleve.Index, bool, error) {
	if idx, ok := s.indexes[name]; ok {
		return idx, true, nil
	}
	if s.root == "" {
		return nil, false, nil
	}

	idx, err := bleve.Open(s.path(name))
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	s.indexes[name] = idx
	return idx, true, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, name)
}

func docID(docType, id string) string {
	return docType + ":" + id
}

// buildMapping maps TAG fields to the keyword analyzer, TEXT to the standard
// analyzer and NUMERIC to numeric fields. Unlisted fields are not indexed.
func buildMapping(def *db.IndexDefinition) (*mapping.IndexMappingImpl, error) {
	dm := bleve.NewDocumentStaticMapping()

	hasType := false
	for _, f := range def.Fields {
		var fm *mapping.FieldMapping
		switch f.Type {
		case db.IndexFieldTag:
			fm = bleve.NewKeywordFieldMapping()
		case db.IndexFieldText:
			fm = bleve.NewTextFieldMapping()
		case db.IndexFieldNumeric:
			fm = bleve.NewNumericFieldMapping()
		default:
			return nil, fmt.Errorf("unknown field type for %q", f.Name)
		}
		fm.Store = true
		dm.AddFieldMappingsAt(f.Name, fm)
		if f.Name == db.TypeField {
			hasType = true
		}
	}
	if !hasType {
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = true
		dm.AddFieldMappingsAt(db.TypeField, fm)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = dm
	return im, nil
}
