// Package fixturetest runs the fixture lifecycle against a real backend.
// Every store package calls Run from its tests with its own factory.
package fixturetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/fixture"
)

// Factory returns a fresh backend for one subtest.
type Factory func(t *testing.T) fixture.Backend

// Run executes the shared fixture suite. Each subtest gets its own backend
// and tears its index down.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	t.Run("Lifecycle", func(t *testing.T) { testLifecycle(t, newBackend(t)) })
	t.Run("SingleMatch", func(t *testing.T) { testSingleMatch(t, newBackend(t)) })
	t.Run("MultiMatchWithNonMember", func(t *testing.T) { testMultiMatch(t, newBackend(t)) })
	t.Run("EmptyQuery", func(t *testing.T) { testEmptyQuery(t, newBackend(t)) })
	t.Run("EachMatch", func(t *testing.T) { testEachMatch(t, newBackend(t)) })
	t.Run("RepeatedSetUp", func(t *testing.T) { testRepeatedSetUp(t, newBackend(t)) })
	t.Run("TypeIsolation", func(t *testing.T) { testTypeIsolation(t, newBackend(t)) })
	t.Run("Run", func(t *testing.T) { testRun(t, newBackend(t)) })
}

func setUp(t *testing.T, b fixture.Backend, cfg fixture.Config) *fixture.Controller {
	t.Helper()
	c, err := fixture.New(b, cfg)
	require.NoError(t, err)
	require.NoError(t, c.SetUp(context.Background()))
	t.Cleanup(func() {
		_ = c.TearDown(context.Background())
	})
	return c
}

func testLifecycle(t *testing.T, b fixture.Backend) {
	ctx := context.Background()
	c, err := fixture.New(b, fixture.Config{})
	require.NoError(t, err)
	require.Equal(t, fixture.Uninitialized, c.State())

	require.NoError(t, c.SetUp(ctx))
	require.Equal(t, fixture.Populated, c.State())
	require.Len(t, c.IDs(), fixture.DefaultDocCount)

	exists, err := b.IndexExists(ctx, fixture.DefaultIndex)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, c.TearDown(ctx))
	require.Equal(t, fixture.TornDown, c.State())

	exists, err = b.IndexExists(ctx, fixture.DefaultIndex)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, c.TearDown(ctx), "repeated teardown is a no-op")
}

func testSingleMatch(t *testing.T, b fixture.Backend) {
	c := setUp(t, b, fixture.Config{})
	require.NoError(t, c.VerifySingleMatch(context.Background()))
}

func testMultiMatch(t *testing.T, b fixture.Backend) {
	c := setUp(t, b, fixture.Config{})
	ctx := context.Background()
	require.NoError(t, c.VerifyMultiMatchWithNonMember(ctx))

	ids := c.IDs()
	res, err := c.Search(ctx, ids[0], ids[1], ids[2])
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)

	res, err = c.Search(ctx, ids[0], ids[0])
	require.NoError(t, err)
	require.Equal(t, 1, res.Total, "duplicate ids count once")
}

func testEmptyQuery(t *testing.T, b fixture.Backend) {
	c := setUp(t, b, fixture.Config{})
	ctx := context.Background()
	require.NoError(t, c.VerifyEmptyQuery(ctx))

	res, err := c.Search(ctx, fixture.DefaultNonMember)
	require.NoError(t, err)
	require.Equal(t, 0, res.Total)
	require.NotNil(t, res.Entries)
}

func testEachMatch(t *testing.T, b fixture.Backend) {
	c := setUp(t, b, fixture.Config{})
	require.NoError(t, c.VerifyEachMatch(context.Background()))
}

func testRepeatedSetUp(t *testing.T, b fixture.Backend) {
	c := setUp(t, b, fixture.Config{DocCount: 3})
	ctx := context.Background()
	require.NoError(t, c.SetUp(ctx))

	ids := c.IDs()
	require.Len(t, ids, 6)
	res, err := c.Search(ctx, ids...)
	require.NoError(t, err)
	require.Equal(t, 6, res.Total)
}

func testTypeIsolation(t *testing.T, b fixture.Backend) {
	c := setUp(t, b, fixture.Config{DocCount: 2})
	ctx := context.Background()
	id := c.IDs()[0]

	err := b.Upsert(ctx, fixture.DefaultIndex, "other-type", id, map[string]string{"name": id, "value": "1"}, true)
	require.NoError(t, err)

	require.NoError(t, c.VerifySingleMatch(ctx))

	q, err := c.SearchQuery(id)
	require.NoError(t, err)
	q.DocType = ""
	res, err := b.Search(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
}

func testRun(t *testing.T, b fixture.Backend) {
	c, err := fixture.New(b, fixture.Config{Index: "run-index", DocCount: 4})
	require.NoError(t, err)

	err = c.Run(context.Background(), func(ctx context.Context, c *fixture.Controller) error {
		return c.VerifyAll(ctx)
	})
	require.NoError(t, err)

	exists, err := b.IndexExists(context.Background(), "run-index")
	require.NoError(t, err)
	require.False(t, exists)
}

// Compile-time check: db.Store satisfies fixture.Backend.
var _ fixture.Backend = (db.Store)(nil)
