package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/db"
	"github.com/kailas-cloud/matchcheck/internal/transport/rest"
	healthuc "github.com/kailas-cloud/matchcheck/internal/usecase/health"
)

// --- Mocks ---

type mockSearcher struct {
	fn   func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	last *db.SearchQuery
}

func (m *mockSearcher) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	m.last = q
	if m.fn != nil {
		return m.fn(ctx, q)
	}
	return &db.SearchResult{Entries: []db.SearchEntry{}}, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

func newTestRouter(s *mockSearcher, pingErr error, apiKeys ...string) http.Handler {
	health := healthuc.New(&mockPinger{err: pingErr}, nil, "")
	return NewRouter(NewServer(s, health, prometheus.NewRegistry(), nil), apiKeys)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const compoundBody = `{
	"type": "my-test",
	"timeout_ms": 5000,
	"query": {"must": [{"bool": {"should": [
		{"match": {"field": "name", "value": "a"}},
		{"match": {"field": "name", "value": "no-in-result-set"}}
	]}}]}
}`

// --- Tests ---

func TestSearch_Success(t *testing.T) {
	s := &mockSearcher{fn: func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{ID: "a", Fields: map[string]string{"name": "a"}}}}, nil
	}}
	rr := doJSON(t, newTestRouter(s, nil), http.MethodPost, "/v1/indexes/my-index/search", compoundBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var resp rest.SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Hits[0].ID != "a" {
		t.Errorf("resp = %+v", resp)
	}

	q := s.last
	if q.IndexName != "my-index" || q.DocType != "my-test" || q.Timeout != 5*time.Second {
		t.Errorf("query = %+v", q)
	}
	if got := len(q.Query.Must()[0].Nested().Should()); got != 2 {
		t.Errorf("should clauses = %d, want 2", got)
	}
}

func TestSearch_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		code rest.ErrorCode
	}{
		{"invalid json", "/v1/indexes/my-index/search", `{`, rest.ErrorCodeBadRequest},
		{"invalid clause", "/v1/indexes/my-index/search", `{"query":{"must":[{}]}}`, rest.ErrorCodeValidationFailed},
		{"negative limit", "/v1/indexes/my-index/search", `{"limit":-1,"query":{}}`, rest.ErrorCodeValidationFailed},
		{"invalid index", "/v1/indexes/bad%20name/search", `{"query":{}}`, rest.ErrorCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockSearcher{}
			rr := doJSON(t, newTestRouter(s, nil), http.MethodPost, tt.path, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			var errResp rest.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatal(err)
			}
			if errResp.Code != tt.code {
				t.Errorf("code = %s, want %s", errResp.Code, tt.code)
			}
			if s.last != nil {
				t.Error("searcher must not be called for invalid input")
			}
		})
	}
}

func TestSearch_BackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   rest.ErrorCode
	}{
		{"not found", db.ErrIndexNotFound, http.StatusNotFound, rest.ErrorCodeIndexNotFound},
		{"timeout", &db.Error{Op: db.OpSearch, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, rest.ErrorCodeTimeout},
		{"closed", db.ErrClosed, http.StatusServiceUnavailable, rest.ErrorCodeInternalError},
		{"other", errors.New("boom"), http.StatusInternalServerError, rest.ErrorCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockSearcher{fn: func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
				return nil, tt.err
			}}
			rr := doJSON(t, newTestRouter(s, nil), http.MethodPost, "/v1/indexes/my-index/search", compoundBody)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var errResp rest.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatal(err)
			}
			if errResp.Code != tt.code {
				t.Errorf("code = %s, want %s", errResp.Code, tt.code)
			}
			if strings.Contains(errResp.Message, "boom") {
				t.Error("internal error details leaked")
			}
		})
	}
}

func TestSearch_TimeoutCapped(t *testing.T) {
	s := &mockSearcher{}
	body := `{"timeout_ms": 3600000, "query": {}}`
	rr := doJSON(t, newTestRouter(s, nil), http.MethodPost, "/v1/indexes/my-index/search", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if s.last.Timeout != maxSearchTimeout {
		t.Errorf("timeout = %s, want %s", s.last.Timeout, maxSearchTimeout)
	}
}

func TestHealthCheck(t *testing.T) {
	rr := doJSON(t, newTestRouter(&mockSearcher{}, nil), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp rest.HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("resp = %+v", resp)
	}

	rr = doJSON(t, newTestRouter(&mockSearcher{}, errors.New("down")), http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "matchcheck_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	h := NewRouter(NewServer(&mockSearcher{}, healthuc.New(&mockPinger{}, nil, ""), reg, nil), nil)
	rr := doJSON(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "matchcheck_test_total 1") {
		t.Errorf("metrics body missing counter:\n%s", rr.Body)
	}
}

func TestRouter_RequestIDAndNotFound(t *testing.T) {
	rr := doJSON(t, newTestRouter(&mockSearcher{}, nil), http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRouter_AuthAppliesToSearch(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, nil, "secret")

	rr := doJSON(t, h, http.MethodPost, "/v1/indexes/my-index/search", compoundBody)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}
