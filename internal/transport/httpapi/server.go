// Package httpapi exposes the search service over a chi HTTP router.
package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
	dlog "github.com/constructiq/permitsearch/internal/domain/querylog"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
	"github.com/constructiq/permitsearch/internal/domain/search/request"
	healthuc "github.com/constructiq/permitsearch/internal/usecase/health"
	queryloguc "github.com/constructiq/permitsearch/internal/usecase/querylog"
	searchuc "github.com/constructiq/permitsearch/internal/usecase/search"
)

// Error response codes returned to clients.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeServiceUnavailable = "service_unavailable"
	codeInternalError      = "internal_error"
)

const unavailableMessage = "search temporarily unavailable"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server is the HTTP API server.
type Server struct {
	search        *searchuc.Service
	logs          *queryloguc.Service
	health        *healthuc.Service
	defaultTopK   int
	maxTopK       int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	logs *queryloguc.Service,
	health *healthuc.Service,
	defaultTopK, maxTopK int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:      search,
		logs:        logs,
		health:      health,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		filterFieldHandler,
		visibleSentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeValidationFailed),
		visibleSentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		visibleSentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, codeValidationFailed),
		maskedSentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable),
		maskedSentinelHandler(domain.ErrEmbeddingDimMismatch, http.StatusServiceUnavailable),
		maskedSentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/logs/recent", s.handleRecentLogs)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type searchRequest struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters,omitempty"`
	TopK    int            `json:"top_k,omitempty"`
}

type searchResult struct {
	RecordID string         `json:"record_id"`
	Score    float64        `json:"score"`
	Record   *permit.Record `json:"record"`
}

type searchResponse struct {
	Query        string         `json:"query"`
	Results      []searchResult `json:"results"`
	TotalResults int            `json:"total_results"`
	Dropped      int            `json:"dropped,omitempty"`
	SearchTimeMS int64          `json:"search_time_ms"`
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	searchReq, err := request.New(req.Query, req.Filters, req.TopK, s.defaultTopK, s.maxTopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.Search(r.Context(), &searchReq, searchuc.ClientMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	results := make([]searchResult, len(resp.Entries))
	for i := range resp.Entries {
		results[i] = searchResult{
			RecordID: resp.Entries[i].ID(),
			Score:    resp.Entries[i].Score(),
			Record:   resp.Entries[i].Record(),
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:        searchReq.Query(),
		Results:      results,
		TotalResults: len(results),
		Dropped:      resp.Dropped,
		SearchTimeMS: resp.ElapsedMS,
	})
}

type recentLogsResponse struct {
	Entries []dlog.Entry `json:"entries"`
	Total   int          `json:"total"`
}

// handleRecentLogs handles GET /api/v1/logs/recent.
func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.logs.Recent(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []dlog.Entry{}
	}

	writeJSON(w, http.StatusOK, recentLogsResponse{Entries: entries, Total: len(entries)})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// filterFieldHandler surfaces compile failures with the offending field in
// the message so the caller can fix the filter.
func filterFieldHandler(w http.ResponseWriter, err error) bool {
	var unknown *filter.UnknownFieldError
	if errors.As(err, &unknown) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, unknown.Error())
		return true
	}
	var invalidOp *filter.InvalidOperatorError
	if errors.As(err, &invalidOp) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, invalidOp.Error())
		return true
	}
	return false
}

// visibleSentinelHandler returns the sentinel chain's message to the client.
func visibleSentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// maskedSentinelHandler hides dependency details behind a generic message.
func maskedSentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, codeServiceUnavailable, unavailableMessage)
		return true
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip, _, ok := strings.Cut(fwd, ","); ok || ip != "" {
			return strings.TrimSpace(ip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
