// Package matchcheck stands up a search index with synthetic documents,
// verifies that boolean match queries return the expected hit counts, and
// tears the index down again.
package matchcheck

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/db"
	dbBleve "github.com/kailas-cloud/matchcheck/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/matchcheck/internal/db/redis"
	"github.com/kailas-cloud/matchcheck/internal/fixture"
	"github.com/kailas-cloud/matchcheck/internal/metrics"
)

const defaultReadinessTimeout = 10 * time.Second

const (
	driverBleve = "bleve"
	driverRedis = "redis"
)

// Client is the matchcheck SDK entry point. It is not safe for concurrent use.
type Client struct {
	store   db.Store
	fixture *fixture.Controller
}

// Hit is a single search result.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]string
}

// SearchResult holds the total match count and the returned page of hits.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// New connects to the configured backend and prepares a fixture.
// Without a backend option the fixture runs on an in-memory bleve index.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:           driverBleve,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("matchcheck: backend not ready: %w", err)
	}

	var m *metrics.Backend
	if cfg.metricsReg != nil {
		m, err = metrics.NewBackend(cfg.metricsReg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("matchcheck: %w", err)
		}
	}
	inst := db.NewInstrumented(store, cfg.driver, m, cfg.logger)

	ctrl, err := fixture.New(inst, fixture.Config{
		Index:     cfg.index,
		Type:      cfg.docType,
		DocCount:  cfg.docCount,
		Timeout:   cfg.timeout,
		NonMember: cfg.nonMember,
	}, fixture.WithLogger(cfg.logger))
	if err != nil {
		inst.Close()
		return nil, fmt.Errorf("matchcheck: %w", err)
	}

	return &Client{store: inst, fixture: ctrl}, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case driverBleve:
		s, err := dbBleve.NewStore(dbBleve.Config{Path: cfg.path})
		if err != nil {
			return nil, fmt.Errorf("matchcheck: create bleve store: %w", err)
		}
		return s, nil
	case driverRedis:
		if len(cfg.addrs) == 0 {
			return nil, fmt.Errorf("matchcheck: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("matchcheck: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("matchcheck: unknown driver %q", cfg.driver)
	}
}

// Close releases the backend connection. The fixture index is not dropped;
// call TearDown first.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
		c.store = nil
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return db.ErrClosed
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// SetUp creates the index if needed and inserts a fresh batch of documents.
func (c *Client) SetUp(ctx context.Context) error {
	return c.fixture.SetUp(ctx) //nolint:wrapcheck // already contextualized
}

// TearDown drops the index with its documents.
func (c *Client) TearDown(ctx context.Context) error {
	return c.fixture.TearDown(ctx) //nolint:wrapcheck // already contextualized
}

// Run sets up the fixture, calls fn, and tears the fixture down.
// Errors from fn and from teardown are joined.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	//nolint:wrapcheck // already contextualized
	return c.fixture.Run(ctx, func(ctx context.Context, _ *fixture.Controller) error {
		return fn(ctx)
	})
}

// Verify runs every hit-count check against the populated fixture and
// returns the first failure.
func (c *Client) Verify(ctx context.Context) error {
	return c.fixture.VerifyAll(ctx) //nolint:wrapcheck // already contextualized
}

// IDs returns the inserted document ids in insertion order.
func (c *Client) IDs() []string {
	return c.fixture.IDs()
}

// Search queries the fixture index for documents named by any of ids.
func (c *Client) Search(ctx context.Context, ids ...string) (*SearchResult, error) {
	res, err := c.fixture.Search(ctx, ids...)
	if err != nil {
		return nil, err //nolint:wrapcheck // already contextualized
	}
	out := &SearchResult{Total: res.Total, Hits: make([]Hit, 0, len(res.Entries))}
	for _, e := range res.Entries {
		out.Hits = append(out.Hits, Hit{ID: e.ID, Score: e.Score, Fields: e.Fields})
	}
	return out, nil
}
