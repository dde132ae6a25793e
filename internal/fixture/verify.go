package fixture

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/db"
)

// Check names reported in AssertionError.
const (
	CheckSingleMatch   = "single_match"
	CheckMultiMatch    = "multi_match_with_non_member"
	CheckEmptyQuery    = "empty_query"
	CheckEachMatch     = "each_match"
	CheckMultiMatchVia = "multi_match_via"
)

// Search queries the fixture index for documents named by any of ids,
// through the fixture backend.
func (c *Controller) Search(ctx context.Context, ids ...string) (*db.SearchResult, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("search: no backend")
	}
	return c.searchVia(ctx, c.backend, ids)
}

// SearchQuery returns the request the fixture sends for ids.
func (c *Controller) SearchQuery(ids ...string) (*db.SearchQuery, error) {
	q, err := BuildQuery(ids...)
	if err != nil {
		return nil, err
	}
	return &db.SearchQuery{
		IndexName: c.cfg.Index,
		DocType:   c.cfg.Type,
		Query:     q,
		Timeout:   c.cfg.Timeout,
	}, nil
}

func (c *Controller) searchVia(ctx context.Context, s Searcher, ids []string) (*db.SearchResult, error) {
	q, err := c.SearchQuery(ids...)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res, err := s.Search(callCtx, q)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search: %w: %w", ErrQueryTimeout, err)
		}
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// VerifySingleMatch checks that querying the first inserted id yields exactly one hit.
func (c *Controller) VerifySingleMatch(ctx context.Context) error {
	ids, err := c.requireIDs()
	if err != nil {
		return err
	}
	return c.expectHits(ctx, c.backend, CheckSingleMatch, []string{ids[0]}, 1)
}

// VerifyMultiMatchWithNonMember checks that the first inserted id plus an
// absent identifier yields exactly one hit.
func (c *Controller) VerifyMultiMatchWithNonMember(ctx context.Context) error {
	return c.VerifyMultiMatchVia(ctx, nil)
}

// VerifyMultiMatchVia runs the non-member check through s, or through the
// fixture backend when s is nil.
func (c *Controller) VerifyMultiMatchVia(ctx context.Context, s Searcher) error {
	ids, err := c.requireIDs()
	if err != nil {
		return err
	}
	check := CheckMultiMatch
	if s == nil {
		s = c.backend
	} else {
		check = CheckMultiMatchVia
	}
	return c.expectHits(ctx, s, check, []string{ids[0], c.cfg.NonMember}, 1)
}

// VerifyEmptyQuery checks that a query without ids yields no hits.
func (c *Controller) VerifyEmptyQuery(ctx context.Context) error {
	if _, err := c.requireIDs(); err != nil {
		return err
	}
	return c.expectHits(ctx, c.backend, CheckEmptyQuery, nil, 0)
}

// VerifyEachMatch checks every inserted id individually.
func (c *Controller) VerifyEachMatch(ctx context.Context) error {
	ids, err := c.requireIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := c.expectHits(ctx, c.backend, CheckEachMatch, []string{id}, 1); err != nil {
			return err
		}
	}
	return nil
}

// VerifyAll runs every backend check in order and stops at the first failure.
func (c *Controller) VerifyAll(ctx context.Context) error {
	checks := []func(context.Context) error{
		c.VerifySingleMatch,
		c.VerifyMultiMatchWithNonMember,
		c.VerifyEmptyQuery,
		c.VerifyEachMatch,
	}
	for _, check := range checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) requireIDs() ([]string, error) {
	if c.state != Populated || len(c.ids) == 0 {
		return nil, fmt.Errorf("%w (state %s)", ErrNoDocuments, c.state)
	}
	return c.ids, nil
}

func (c *Controller) expectHits(ctx context.Context, s Searcher, check string, ids []string, want int) error {
	res, err := c.searchVia(ctx, s, ids)
	if err != nil {
		return fmt.Errorf("%s: %w", check, err)
	}

	var aerr *AssertionError
	switch {
	case res == nil:
		aerr = &AssertionError{Check: check, IDs: ids, Expected: want, Reason: "no response"}
	case res.Entries == nil:
		aerr = &AssertionError{Check: check, IDs: ids, Expected: want, Reason: "response has no hits"}
	case res.Total != want:
		aerr = &AssertionError{Check: check, IDs: ids, Expected: want, Actual: res.Total}
	default:
		c.logger.Debug("Check passed", zap.String("check", check), zap.Int("hits", res.Total))
		return nil
	}

	c.logger.Error("Check failed", zap.String("check", check), zap.Error(aerr))
	return aerr
}
