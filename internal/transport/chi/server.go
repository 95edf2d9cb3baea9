// Package chi exposes the search core over HTTP and WebSocket.
package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/plan"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	healthuc "github.com/kailas-cloud/mediasearch/internal/usecase/health"
	"github.com/kailas-cloud/mediasearch/internal/usecase/session"
)

// Server holds the HTTP handlers.
type Server struct {
	search     SearchService
	suggest    SuggestService
	recorder   Recorder
	health     HealthChecker
	sessionCfg session.Config
	maxQuery   int
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewServer creates an HTTP API server. recorder may be nil.
func NewServer(
	search SearchService,
	suggest SuggestService,
	recorder Recorder,
	health HealthChecker,
	sessionCfg session.Config,
	logger *zap.Logger,
) *Server {
	if sessionCfg.Limits == (request.Limits{}) {
		sessionCfg.Limits = search.Limits()
	}
	return &Server{
		search:     search,
		suggest:    suggest,
		recorder:   recorder,
		health:     health,
		sessionCfg: sessionCfg,
		maxQuery:   plan.DefaultMaxQueryLength,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// WithMaxQueryLength bounds the query text accepted by the analytics endpoints.
// It should match the search compiler's limit.
func (s *Server) WithMaxQueryLength(n int) *Server {
	if n > 0 {
		s.maxQuery = n
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/suggest", s.Suggest)
		r.Post("/analytics/search", s.RecordSearch)
		r.Post("/analytics/click", s.RecordClick)
		r.Get("/sessions/ws", s.SessionSocket)
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := decodeJSON(r, w, &body); err != nil {
		handleDomainError(w, r, err)
		return
	}

	req, err := request.New(body.params(), s.search.Limits())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseToDTO(resp))
}

// Suggest handles POST /api/v1/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body SuggestRequest
	if err := decodeJSON(r, w, &body); err != nil {
		handleDomainError(w, r, err)
		return
	}

	types, err := suggestion.ParseTypes(body.Types)
	if err != nil {
		handleDomainError(w, r, domain.InvalidQuery("%v", err))
		return
	}

	out, err := s.suggest.Suggest(r.Context(), body.Query, types, body.Limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestResponse{
		Suggestions:     suggestionsToDTO(out),
		Query:           body.Query,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	})
}

// RecordSearch handles POST /api/v1/analytics/search.
func (s *Server) RecordSearch(w http.ResponseWriter, r *http.Request) {
	var body SearchEventRequest
	if err := decodeJSON(r, w, &body); err != nil {
		handleDomainError(w, r, err)
		return
	}
	ev, err := body.event(s.maxQuery)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if s.recorder != nil {
		s.recorder.RecordSearch(ev)
		if c, ok := clickFromEvent(ev); ok {
			s.recorder.RecordClick(c)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

// RecordClick handles POST /api/v1/analytics/click.
func (s *Server) RecordClick(w http.ResponseWriter, r *http.Request) {
	var body ClickEventRequest
	if err := decodeJSON(r, w, &body); err != nil {
		handleDomainError(w, r, err)
		return
	}
	c, err := body.click(s.maxQuery)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if s.recorder != nil {
		s.recorder.RecordClick(c)
	}
	w.WriteHeader(http.StatusAccepted)
}

// HealthCheck handles GET /health. Degraded still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
