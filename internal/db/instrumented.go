package db

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/metrics"
)

// Compile-time check: Instrumented implements Store.
var _ Store = (*Instrumented)(nil)

// Instrumented wraps a Store with per-operation metrics and failure logging.
// Errors are returned unchanged so callers can still match sentinels.
type Instrumented struct {
	inner   Store
	driver  string
	metrics *metrics.Backend
	logger  *zap.Logger
}

// NewInstrumented decorates inner. m and logger may be nil.
func NewInstrumented(inner Store, driver string, m *metrics.Backend, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{
		inner:   inner,
		driver:  driver,
		metrics: m,
		logger:  logger.With(zap.String("driver", driver)),
	}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	dur := time.Since(start)
	s.metrics.Observe(s.driver, op, dur, err)
	if err != nil {
		s.logger.Warn("Backend operation failed",
			zap.String("op", op),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Backend operation completed",
		zap.String("op", op),
		zap.Duration("duration", dur),
	)
}

// Ping checks connectivity.
func (s *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.observe("ping", start, err)
	return err //nolint:wrapcheck // transparent decorator
}

// CreateIndex creates an index.
func (s *Instrumented) CreateIndex(ctx context.Context, def *IndexDefinition) error {
	start := time.Now()
	err := s.inner.CreateIndex(ctx, def)
	if errors.Is(err, ErrIndexExists) {
		// an existing index is an expected outcome, not a failure
		s.metrics.Observe(s.driver, "create_index", time.Since(start), nil)
		return err //nolint:wrapcheck // transparent decorator
	}
	s.observe("create_index", start, err)
	return err //nolint:wrapcheck // transparent decorator
}

// DropIndex removes an index.
func (s *Instrumented) DropIndex(ctx context.Context, name string) error {
	start := time.Now()
	err := s.inner.DropIndex(ctx, name)
	s.observe("drop_index", start, err)
	return err //nolint:wrapcheck // transparent decorator
}

// IndexExists probes index existence.
func (s *Instrumented) IndexExists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	ok, err := s.inner.IndexExists(ctx, name)
	s.observe("index_exists", start, err)
	return ok, err //nolint:wrapcheck // transparent decorator
}

// Upsert stores a document.
func (s *Instrumented) Upsert(
	ctx context.Context, index, docType, id string, fields map[string]string, forceVisible bool,
) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, index, docType, id, fields, forceVisible)
	s.observe("upsert", start, err)
	return err //nolint:wrapcheck // transparent decorator
}

// Search runs a boolean query.
func (s *Instrumented) Search(ctx context.Context, q *SearchQuery) (*SearchResult, error) {
	start := time.Now()
	res, err := s.inner.Search(ctx, q)
	s.observe("search", start, err)
	return res, err //nolint:wrapcheck // transparent decorator
}

// WaitForReady delegates readiness polling.
func (s *Instrumented) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return s.inner.WaitForReady(ctx, timeout) //nolint:wrapcheck // transparent decorator
}

// Close releases the inner store.
func (s *Instrumented) Close() {
	s.inner.Close()
}
