// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/request"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
	"github.com/kailas-cloud/servicesearch/internal/logger"
	healthuc "github.com/kailas-cloud/servicesearch/internal/usecase/health"
)

// Client-facing messages. Internal detail is logged, never returned.
const (
	RootMessage         = "Semantic Search API is running"
	msgEmbeddingFailed  = "Failed to generate embedding"
	msgSearchFailed     = "Search failed"
	msgInvalidBody      = "Invalid request body"
	maxRequestBodyBytes = 64 << 10
)

// Searcher runs a validated search request.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search API.
type Server struct {
	search        Searcher
	health        HealthReporter
	policy        request.Policy
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query     string   `json:"query"`
	Limit     *int     `json:"limit,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// SearchResult is one element of the POST /search response array.
type SearchResult struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      *string  `json:"description,omitempty"`
	ShortDescription *string  `json:"short_description,omitempty"`
	Status           string   `json:"status"`
	OrganizationName *string  `json:"organization_name,omitempty"`
	Similarity       float64  `json:"similarity"`
	Distance         *float64 `json:"distance,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewServer creates an HTTP API server. health may be nil.
func NewServer(search Searcher, health HealthReporter, policy request.Policy, log *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		policy: policy,
		logger: log,
	}
	s.errorHandlers = []errorHandler{
		invalidRequestHandler,
		embeddingErrorHandler,
		sentinelHandler(domain.ErrPoolUnavailable, http.StatusServiceUnavailable, msgSearchFailed),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Root)
	r.Post("/search", s.Search)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RootMessage))
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	req, err := request.New(body.Query, body.Limit, body.Latitude, body.Longitude, s.policy)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	results, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	items := make([]SearchResult, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// HealthCheck handles GET /health. Degraded still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: string(healthuc.Healthy), Checks: map[string]string{}})
		return
	}
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func searchResultToDTO(r *result.Result) SearchResult {
	return SearchResult{
		ID:               r.ID(),
		Name:             r.Name(),
		Description:      r.Description(),
		ShortDescription: r.ShortDescription(),
		Status:           r.Status(),
		OrganizationName: r.OrganizationName(),
		Similarity:       r.Similarity(),
		Distance:         r.Distance(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// invalidRequestHandler returns the validation message, which never carries internals.
func invalidRequestHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, err.Error())
	return true
}

func embeddingErrorHandler(w http.ResponseWriter, err error) bool {
	if !domain.IsEmbeddingError(err) {
		return false
	}
	writeError(w, http.StatusInternalServerError, msgEmbeddingFailed)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContextOr(ctx, s.logger)
	if errors.Is(err, domain.ErrInvalidRequest) {
		log.Debug("invalid search request", zap.Error(err))
	} else {
		log.Error("search failed", zap.Error(err))
	}
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	writeError(w, http.StatusInternalServerError, msgSearchFailed)
}
