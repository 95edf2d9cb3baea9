package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/access"
	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/facet"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/plan"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/result"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
)

// Config tunes the search pipeline. Zero values fall back to defaults;
// a zero RetryBackoff retries immediately.
type Config struct {
	MinQueryLength    int
	MaxQueryLength    int
	Limits            request.Limits
	Weights           Weights
	RelevanceFloor    float64
	FacetLimit        int
	StoreTimeout      time.Duration
	RetryBackoff      time.Duration
	InlineSuggestions int
}

// Defaults for store access.
const (
	DefaultStoreTimeout      = 2 * time.Second
	DefaultRetryBackoff      = 100 * time.Millisecond
	DefaultInlineSuggestions = 5
)

// Response is the merged outcome of one search.
type Response struct {
	Results       []result.Result
	Facets        []facet.Facet
	Suggestions   []suggestion.Suggestion
	Pagination    pagination.Page
	ExecutionTime time.Duration
	Query         string
	Criteria      filter.Criteria
}

// Service compiles criteria, fetches candidates and merges ranking with facet counts.
type Service struct {
	catalog   Catalog
	compiler  plan.Compiler
	cfg       Config
	suggester Suggester
	recorder  Recorder
	logger    *zap.Logger
}

// New creates a search service.
func New(catalog Catalog, cfg Config, logger *zap.Logger) *Service {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.Limits == (request.Limits{}) {
		cfg.Limits = request.DefaultLimits()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.InlineSuggestions <= 0 {
		cfg.InlineSuggestions = DefaultInlineSuggestions
	}
	return &Service{
		catalog:  catalog,
		compiler: plan.NewCompiler(cfg.MinQueryLength, cfg.MaxQueryLength),
		cfg:      cfg,
		logger:   logger,
	}
}

// WithSuggester enables inline suggestions.
func (s *Service) WithSuggester(sg Suggester) *Service {
	s.suggester = sg
	return s
}

// WithRecorder attaches an analytics recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Limits returns the page size bounds requests are validated against.
func (s *Service) Limits() request.Limits { return s.cfg.Limits }

// Compile validates criteria without executing a search.
func (s *Service) Compile(c filter.Criteria) (plan.Plan, error) {
	return s.compiler.Compile(c)
}

// Search executes one search round trip.
func (s *Service) Search(ctx context.Context, req request.Request) (Response, error) {
	start := time.Now()
	queryType := analytics.ClassifyQuery(req.Criteria())

	resp, err := s.search(ctx, req)
	status := "ok"
	if err != nil {
		status = errorStatus(err)
	}
	metrics.SearchDuration.WithLabelValues(string(queryType), status).Observe(time.Since(start).Seconds())
	if err != nil {
		return Response{}, err
	}

	resp.ExecutionTime = time.Since(start)
	if s.recorder != nil {
		s.recorder.RecordSearch(analytics.Event{
			Query:           resp.Query,
			QueryType:       queryType,
			Filters:         resp.Criteria,
			ResultCount:     resp.Pagination.Total,
			ExecutionTimeMs: resp.ExecutionTime.Milliseconds(),
			SessionID:       req.SessionID(),
			Timestamp:       time.Now().UTC(),
		})
	}
	return resp, nil
}

func (s *Service) search(ctx context.Context, req request.Request) (Response, error) {
	p, err := s.compiler.Compile(req.Criteria())
	if err != nil {
		return Response{}, err
	}

	who := access.FromContext(ctx)
	if err = who.Authorize(p.Criteria()); err != nil {
		return Response{}, err
	}

	docs, err := s.fetch(ctx, p.Criteria())
	if err != nil {
		return Response{}, err
	}
	base := admit(who, p.Criteria(), docs)

	var (
		ranked []scored
		facets []facet.Facet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ranked = rank(NewScorer(p, s.cfg.Weights, s.cfg.RelevanceFloor), base, req.SortBy(), req.SortOrder())
		return nil
	})
	if req.IncludeFacets() {
		g.Go(func() error {
			var err error
			facets, err = s.aggregate(gctx, who, p, base)
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return Response{}, err
	}

	page := pagination.New(req.Page(), req.Limit(), len(ranked))
	lo, hi := page.Bounds()
	results := make([]result.Result, 0, hi-lo)
	for _, c := range ranked[lo:hi] {
		results = append(results, toResult(c))
	}

	resp := Response{
		Results:    results,
		Facets:     facets,
		Pagination: page,
		Query:      p.Query(),
		Criteria:   p.Criteria(),
	}
	if req.IncludeSuggestions() {
		resp.Suggestions = s.inlineSuggestions(ctx, p)
	}
	return resp, nil
}

// inlineSuggestions never fails the search; errors are logged.
func (s *Service) inlineSuggestions(ctx context.Context, p plan.Plan) []suggestion.Suggestion {
	if s.suggester == nil || !p.HasQuery() {
		return nil
	}
	out, err := s.suggester.Suggest(ctx, p.Query(), nil, s.cfg.InlineSuggestions)
	if err != nil {
		s.logger.Warn("Inline suggestions failed", zap.String("query", p.Query()), zap.Error(err))
		return nil
	}
	return out
}

// fetch loads candidates with a per-attempt timeout and one retry after a backoff.
// Cancellation of the caller's context is returned as is, never retried.
func (s *Service) fetch(ctx context.Context, c filter.Criteria) ([]document.Document, error) {
	docs, err := s.fetchOnce(ctx, c)
	if err == nil {
		return docs, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	metrics.CatalogRetriesTotal.Inc()
	s.logger.Warn("Catalog fetch failed, retrying",
		zap.Duration("backoff", s.cfg.RetryBackoff),
		zap.Error(err),
	)

	t := time.NewTimer(s.cfg.RetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}

	docs, err = s.fetchOnce(ctx, c)
	if err == nil {
		return docs, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	metrics.CatalogFailuresTotal.WithLabelValues(reason).Inc()
	return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
}

func (s *Service) fetchOnce(ctx context.Context, c filter.Criteria) ([]document.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	type outcome struct {
		docs []document.Document
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		docs, err := s.catalog.Candidates(ctx, c)
		ch <- outcome{docs: docs, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return nil, fmt.Errorf("catalog candidates: %w", o.err)
		}
		return o.docs, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog candidates: %w", ctx.Err())
	}
}

// admit drops documents the caller may not see and re-checks the structured predicates,
// so a lenient adapter can never leak non-matching documents.
func admit(who access.Principal, c filter.Criteria, docs []document.Document) []document.Document {
	out := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		if who.CanSee(d) && c.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
