package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchcheck/internal/db"
	logpkg "github.com/kailas-cloud/matchcheck/internal/logger"
	"github.com/kailas-cloud/matchcheck/internal/transport/rest"
	healthuc "github.com/kailas-cloud/matchcheck/internal/usecase/health"
)

// maxSearchTimeout caps the per-request timeout a client may ask for.
const maxSearchTimeout = 60 * time.Second

// errorHandler tries to handle a backend error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search API over a backend.
type Server struct {
	searcher      db.Searcher
	health        *healthuc.Service
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. gatherer may be nil to expose the
// default Prometheus registry.
func NewServer(
	searcher db.Searcher,
	health *healthuc.Service,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		searcher: searcher,
		health:   health,
		gatherer: gatherer,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(db.ErrIndexNotFound, http.StatusNotFound, rest.ErrorCodeIndexNotFound, "index not found"),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, rest.ErrorCodeTimeout, "search timed out"),
		sentinelHandler(db.ErrClosed, http.StatusServiceUnavailable, rest.ErrorCodeInternalError, "backend closed"),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/v1/indexes/{index}/search", s.Search)
}

// Search handles POST /v1/indexes/{index}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req rest.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, rest.ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	index := chi.URLParam(r, "index")
	if !db.IsValidIdentifier(index) {
		writeError(w, http.StatusBadRequest, rest.ErrorCodeValidationFailed, "Invalid index name")
		return
	}
	if req.Offset < 0 || req.Limit < 0 || req.TimeoutMs < 0 {
		writeError(w, http.StatusBadRequest, rest.ErrorCodeValidationFailed, "offset, limit and timeout_ms must be non-negative")
		return
	}

	q, err := req.Query.ToQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, rest.ErrorCodeValidationFailed, err.Error())
		return
	}

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if timeout > maxSearchTimeout {
		timeout = maxSearchTimeout
	}

	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := s.searcher.Search(ctx, &db.SearchQuery{
		IndexName:    index,
		DocType:      req.Type,
		Query:        q,
		Offset:       req.Offset,
		Limit:        req.Limit,
		Timeout:      timeout,
		ReturnFields: req.Fields,
	})
	if err != nil {
		s.handleBackendError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rest.ResponseFromResult(res))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, rest.HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	if s.gatherer == nil {
		promhttp.Handler().ServeHTTP(w, r)
		return
	}
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code rest.ErrorCode, message string) {
	writeJSON(w, status, rest.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code rest.ErrorCode, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleBackendError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("search failed", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, rest.ErrorCodeInternalError, "internal error")
}
