package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/matchcheck/internal/db"
)

const defaultHTTPTimeout = 30 * time.Second

// APIError is a non-2xx reply from the API.
type APIError struct {
	Status  int
	Code    ErrorCode
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Unwrap maps well-known codes onto storage sentinels.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case ErrorCodeIndexNotFound:
		return db.ErrIndexNotFound
	case ErrorCodeTimeout:
		return context.DeadlineExceeded
	default:
		return nil
	}
}

// Client talks to the search API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAPIKey sends the key as a Bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search posts the query to /v1/indexes/{index}/search.
func (c *Client) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q == nil || q.IndexName == "" {
		return nil, errors.New("index name is required")
	}

	req := SearchRequest{
		Type:      q.DocType,
		Query:     BoolFromQuery(q.Query),
		Offset:    q.Offset,
		Limit:     q.Limit,
		TimeoutMs: q.Timeout.Milliseconds(),
		Fields:    q.ReturnFields,
	}

	var resp SearchResponse
	path := "/v1/indexes/" + url.PathEscape(q.IndexName) + "/search"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return resp.Result(), nil
}

// Health fetches GET /health. A degraded service answers 503 with a body,
// which is returned together with an *APIError.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Code: ErrorCodeInternalError, Message: http.StatusText(resp.StatusCode)}
		var errResp ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Code != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Message
		} else if out != nil {
			_ = json.Unmarshal(raw, out)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
