// Package fixture stands up a search index populated with synthetic
// documents, checks that boolean match queries return the expected hit
// counts, and tears the index down again.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/domain/document"
)

// Defaults for Config.
const (
	DefaultIndex     = "my-index"
	DefaultType      = "my-test"
	DefaultDocCount  = 20
	DefaultTimeout   = 5 * time.Second
	DefaultNonMember = "no-in-result-set"
)

// Config describes the index a controller manages.
type Config struct {
	Index     string
	Type      string
	DocCount  int
	Timeout   time.Duration // per backend call
	NonMember string        // identifier guaranteed absent from the index
}

// ApplyDefaults fills zero fields with package defaults.
func (c *Config) ApplyDefaults() {
	if c.Index == "" {
		c.Index = DefaultIndex
	}
	if c.Type == "" {
		c.Type = DefaultType
	}
	if c.DocCount == 0 {
		c.DocCount = DefaultDocCount
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.NonMember == "" {
		c.NonMember = DefaultNonMember
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if !db.IsValidIdentifier(c.Index) {
		return fmt.Errorf("invalid index name %q", c.Index)
	}
	if !db.IsValidIdentifier(c.Type) {
		return fmt.Errorf("invalid document type %q", c.Type)
	}
	if c.DocCount < 1 {
		return fmt.Errorf("doc count must be positive, got %d", c.DocCount)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// State is the controller lifecycle state.
type State int

// Lifecycle states.
const (
	Uninitialized State = iota
	IndexReady
	Populated
	TornDown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case IndexReady:
		return "index_ready"
	case Populated:
		return "populated"
	case TornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Controller drives one fixture run against a backend. It is not safe for
// concurrent use.
type Controller struct {
	backend Backend
	cfg     Config
	gen     *Generator
	logger  *zap.Logger
	owned   bool

	state State
	ids   []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGenerator replaces the document generator.
func WithGenerator(g *Generator) Option {
	return func(c *Controller) {
		if g != nil {
			c.gen = g
		}
	}
}

// WithOwnedBackend makes the controller close the backend after a
// successful teardown.
func WithOwnedBackend() Option {
	return func(c *Controller) { c.owned = true }
}

// New creates a controller for backend. Zero config fields take defaults.
func New(backend Backend, cfg Config, opts ...Option) (*Controller, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fixture config: %w", err)
	}

	c := &Controller{
		backend: backend,
		cfg:     cfg,
		gen:     NewGenerator(nil),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("index", cfg.Index))
	return c, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config { return c.cfg }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// IDs returns a copy of the inserted document ids in insertion order.
func (c *Controller) IDs() []string {
	return append([]string(nil), c.ids...)
}

// IndexDefinition returns the schema the controller creates.
func (c *Controller) IndexDefinition() (*db.IndexDefinition, error) {
	return db.NewIndex(c.cfg.Index).
		Tag(document.FieldName).
		Numeric(document.FieldValue).
		Typed().
		Build()
}

// SetUp ensures the index exists and inserts DocCount fresh documents,
// each visible to search before SetUp returns. Calling SetUp again without
// TearDown keeps the index and appends another batch.
func (c *Controller) SetUp(ctx context.Context) error {
	if c.backend == nil {
		return fmt.Errorf("set up %q: %w: no backend", c.cfg.Index, ErrIndexCreation)
	}
	if c.state == TornDown {
		c.ids = nil
	}

	start := time.Now()
	if err := c.ensureIndex(ctx); err != nil {
		c.logger.Error("Index setup failed", zap.Error(err))
		return fmt.Errorf("set up %q: %w", c.cfg.Index, err)
	}
	c.transition(IndexReady)

	if err := c.populate(ctx); err != nil {
		c.logger.Error("Document insert failed", zap.Error(err), zap.Int("inserted", len(c.ids)))
		return fmt.Errorf("set up %q: %w", c.cfg.Index, err)
	}
	c.transition(Populated)

	c.logger.Info("Fixture ready",
		zap.String("type", c.cfg.Type),
		zap.Int("doc_count", len(c.ids)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (c *Controller) ensureIndex(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	exists, err := c.backend.IndexExists(callCtx, c.cfg.Index)
	cancel()
	if err != nil {
		return classify(ErrIndexCreation, "check index", err)
	}
	if exists {
		return nil
	}

	def, err := c.IndexDefinition()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexCreation, err)
	}

	callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
	err = c.backend.CreateIndex(callCtx, def)
	cancel()
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return classify(ErrIndexCreation, "create index", err)
	}
	return nil
}

func (c *Controller) populate(ctx context.Context) error {
	for range c.cfg.DocCount {
		doc, err := c.gen.Generate(c.gen.NewID())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDocumentInsert, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		err = c.backend.Upsert(callCtx, c.cfg.Index, c.cfg.Type, doc.ID(), doc.Fields(), true)
		cancel()
		if err != nil {
			return classify(ErrDocumentInsert, "upsert "+doc.ID(), err)
		}
		c.ids = append(c.ids, doc.ID())
	}
	return nil
}

// TearDown deletes the index with its documents and, when the controller
// owns the backend, closes it. Without a backend, and after a successful
// teardown, it is a no-op.
func (c *Controller) TearDown(ctx context.Context) error {
	if c.backend == nil || c.state == TornDown {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	err := c.backend.DropIndex(callCtx, c.cfg.Index)
	cancel()
	if err != nil {
		err = classify(ErrIndexDeletion, "drop index", err)
		c.logger.Error("Index teardown failed", zap.Error(err))
		return fmt.Errorf("tear down %q: %w", c.cfg.Index, err)
	}

	c.transition(TornDown)
	c.release()
	return nil
}

// Run sets up the fixture, calls fn, and tears the fixture down. Errors from
// fn and from teardown are joined.
func (c *Controller) Run(ctx context.Context, fn func(ctx context.Context, c *Controller) error) error {
	var runErr error
	if err := c.SetUp(ctx); err != nil {
		runErr = err
	} else {
		runErr = fn(ctx, c)
	}

	var downErr error
	if c.state != Uninitialized {
		downErr = c.TearDown(ctx)
	}
	c.release()
	return errors.Join(runErr, downErr)
}

// release closes an owned backend once.
func (c *Controller) release() {
	if !c.owned || c.backend == nil {
		return
	}
	c.backend.Close()
	c.backend = nil
	c.logger.Debug("Backend released")
}

func (c *Controller) transition(to State) {
	c.logger.Info("Fixture state changed",
		zap.Stringer("from", c.state),
		zap.Stringer("state", to),
	)
	c.state = to
}

// classify wraps err with kind, or with ErrQueryTimeout when the call ran
// past its deadline.
func classify(kind error, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrQueryTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
